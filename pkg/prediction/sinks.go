package prediction

import (
	"context"
	"sync"

	"github.com/pulmoprobe/platform/pkg/analytics/dashboard"
	"github.com/pulmoprobe/platform/pkg/common/models"
	"github.com/pulmoprobe/platform/pkg/ledger"
)

const eventSource = "prognosis-service"

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source, key string, data map[string]interface{}) error
}

// EventSink publishes a prediction.recorded event per record.
type EventSink struct {
	publisher EventPublisher
}

func NewEventSink(publisher EventPublisher) *EventSink {
	return &EventSink{publisher: publisher}
}

func (s *EventSink) Name() string { return "events" }

func (s *EventSink) Record(ctx context.Context, record models.PredictionRecord) error {
	return s.publisher.PublishEvent(ctx, models.EventPredictionRecorded, eventSource, record.ID, map[string]interface{}{
		"record": record,
	})
}

type SnapshotPublisher interface {
	Publish(ctx context.Context, snapshot models.AggregateSnapshot) error
}

// MirrorSink recomputes the dashboard after each append and hands it to an
// external mirror. Compute and publish run under one lock so a snapshot is
// never overwritten by an older one.
type MirrorSink struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	engine    *dashboard.Engine
	publisher SnapshotPublisher
}

func NewMirrorSink(l *ledger.Ledger, engine *dashboard.Engine, publisher SnapshotPublisher) *MirrorSink {
	return &MirrorSink{ledger: l, engine: engine, publisher: publisher}
}

func (s *MirrorSink) Name() string { return "dashboard-mirror" }

func (s *MirrorSink) Record(ctx context.Context, _ models.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publisher.Publish(ctx, s.engine.Compute(s.ledger.Snapshot()))
}
