package serving

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/observability/metrics"
)

const (
	HighRiskLabel = "High Risk of Non-Survival"
	LowRiskLabel  = "Low Risk of Non-Survival"

	highRiskThreshold = 0.5
)

type Scorer interface {
	Predict(model string, features map[string]float64) (float64, error)
}

type PredictResponse struct {
	Risk       string `json:"risk"`
	Confidence string `json:"confidence"`
}

// HTTPHandler serves the classifier contract: a feature map in, a risk label
// and percentage confidence out.
type HTTPHandler struct {
	scorer  Scorer
	model   string
	maxBody int64
}

func NewHTTPHandler(scorer Scorer, model string, maxBody int64) *HTTPHandler {
	return &HTTPHandler{scorer: scorer, model: model, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
}

// Label maps P(high risk) to the response the prognosis service records.
func Label(probability float64) PredictResponse {
	risk := LowRiskLabel
	if probability > highRiskThreshold {
		risk = HighRiskLabel
	}
	return PredictResponse{
		Risk:       risk,
		Confidence: fmt.Sprintf("%.1f%%", probability*100),
	}
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var features map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid feature vector"})
		return
	}

	probability, err := h.scorer.Predict(h.model, features)
	if err != nil {
		logger.Log.WithError(err).WithField("model", h.model).Warn("prediction failed")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	metrics.ObserveClassifierPrediction()

	resp := Label(probability)
	logger.Log.WithFields(map[string]interface{}{
		"model":      h.model,
		"risk":       resp.Risk,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("Prediction completed")

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
