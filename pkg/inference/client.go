package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/common/models"
)

const (
	ErrorRisk       = "Error"
	ErrorConfidence = "0%"

	maxResponseBytes = 1 << 20
)

var errMissingRisk = errors.New("response missing risk")

// TransportError covers every way a classifier call can fail: network
// errors, non-2xx statuses and unusable bodies.
type TransportError struct {
	StatusCode int
	reason     error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("classifier returned status %d: %v", e.StatusCode, e.reason)
	}
	return e.reason.Error()
}

func (e *TransportError) Unwrap() error {
	return e.reason
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// FailedOutcome is the displayable outcome recorded for a failed call.
func FailedOutcome(err error) models.PredictionOutcome {
	return models.PredictionOutcome{
		Risk:       ErrorRisk,
		Confidence: ErrorConfidence,
		Error:      err.Error(),
	}
}

type response struct {
	Risk       string          `json:"risk"`
	Confidence json.RawMessage `json:"confidence"`
	Error      string          `json:"error"`
}

// Client sends feature vectors to the remote classifier, one attempt each.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	return &Client{endpoint: endpoint, http: httpClient}
}

// Predict never fails: a failed call yields FailedOutcome.
func (c *Client) Predict(ctx context.Context, vec models.FeatureVector) models.PredictionOutcome {
	start := time.Now()
	outcome, err := c.call(ctx, vec)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"endpoint":   c.endpoint,
			"latency_ms": time.Since(start).Milliseconds(),
		}).Warn("classifier call failed")
		return FailedOutcome(err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"risk":       outcome.Risk,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("classifier call completed")
	return outcome
}

func (c *Client) call(ctx context.Context, vec models.FeatureVector) (models.PredictionOutcome, error) {
	body, err := json.Marshal(vec)
	if err != nil {
		return models.PredictionOutcome{}, &TransportError{reason: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.PredictionOutcome{}, &TransportError{reason: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.PredictionOutcome{}, &TransportError{reason: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.PredictionOutcome{}, &TransportError{StatusCode: resp.StatusCode, reason: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(payload))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return models.PredictionOutcome{}, &TransportError{StatusCode: resp.StatusCode, reason: fmt.Errorf("API error: %s", text)}
	}

	var parsed response
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return models.PredictionOutcome{}, &TransportError{StatusCode: resp.StatusCode, reason: fmt.Errorf("decoding response: %w", err)}
	}
	if parsed.Error != "" {
		return models.PredictionOutcome{}, &TransportError{reason: fmt.Errorf("classifier error: %s", parsed.Error)}
	}
	if strings.TrimSpace(parsed.Risk) == "" {
		return models.PredictionOutcome{}, &TransportError{reason: errMissingRisk}
	}

	return models.PredictionOutcome{
		Risk:       parsed.Risk,
		Confidence: normalizeConfidence(parsed.Confidence),
	}, nil
}

// normalizeConfidence renders the confidence as a percentage string. The
// classifier may send "92%", "92.3" or a bare JSON number.
func normalizeConfidence(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return ""
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return text
		}
		text = strings.TrimSpace(s)
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return text + "%"
	}
	return text
}
