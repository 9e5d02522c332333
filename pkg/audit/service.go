package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/common/models"
	"github.com/pulmoprobe/platform/pkg/observability/metrics"
)

var errMissingRecord = errors.New("event carries no prediction record")

type Store interface {
	Save(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type Service struct {
	store Store
	nowFn func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, nowFn: time.Now}
}

// HandleEvent is the Kafka consumer callback for prediction.recorded events.
// Other event types are acknowledged and skipped.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != models.EventPredictionRecorded {
		logger.Log.WithField("event_type", event.Type).Debug("ignoring event")
		return nil
	}

	record, err := decodeRecord(event)
	if err != nil {
		// Not retryable: a malformed event will never decode.
		logger.Log.WithError(err).WithField("event_id", event.ID).Error("dropping malformed prediction event")
		return nil
	}

	inputs, err := toMap(record.Inputs)
	if err != nil {
		return fmt.Errorf("encoding inputs for %s: %w", record.ID, err)
	}

	entry := &Entry{
		ID:         uuid.New(),
		EventID:    event.ID,
		RecordID:   record.ID,
		Risk:       record.Outcome.Risk,
		Confidence: record.Outcome.Confidence,
		Error:      record.Outcome.Error,
		Inputs:     inputs,
		RecordedAt: record.CreatedAt,
		CreatedAt:  s.nowFn().UTC(),
	}
	if err := s.store.Save(ctx, entry); err != nil {
		return fmt.Errorf("saving audit entry for %s: %w", record.ID, err)
	}
	metrics.ObserveAuditStored()
	return nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.store.Recent(ctx, limit)
}

func decodeRecord(event models.Event) (models.PredictionRecord, error) {
	raw, ok := event.Data["record"]
	if !ok {
		return models.PredictionRecord{}, errMissingRecord
	}
	content, err := json.Marshal(raw)
	if err != nil {
		return models.PredictionRecord{}, err
	}
	var record models.PredictionRecord
	if err := json.Unmarshal(content, &record); err != nil {
		return models.PredictionRecord{}, err
	}
	if record.ID == "" {
		return models.PredictionRecord{}, errMissingRecord
	}
	return record, nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	content, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(content, &out); err != nil {
		return nil, err
	}
	return out, nil
}
