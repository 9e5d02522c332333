package prediction

import (
	"context"
	"fmt"

	"github.com/pulmoprobe/platform/pkg/analytics/dashboard"
	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/common/models"
	"github.com/pulmoprobe/platform/pkg/features"
	"github.com/pulmoprobe/platform/pkg/inference"
	"github.com/pulmoprobe/platform/pkg/ledger"
	"github.com/pulmoprobe/platform/pkg/observability/metrics"
)

// Classifier scores one feature vector. Implementations report failures as
// an Error outcome rather than an error value.
type Classifier interface {
	Predict(ctx context.Context, vec models.FeatureVector) models.PredictionOutcome
}

// Sink receives every record after it has been appended to the ledger.
type Sink interface {
	Name() string
	Record(ctx context.Context, record models.PredictionRecord) error
}

type Service struct {
	encoder    *features.Encoder
	classifier Classifier
	ledger     *ledger.Ledger
	sinks      []Sink
}

func NewService(encoder *features.Encoder, classifier Classifier, l *ledger.Ledger, sinks ...Sink) *Service {
	return &Service{
		encoder:    encoder,
		classifier: classifier,
		ledger:     l,
		sinks:      sinks,
	}
}

// Submit runs encode, infer and append for one form submission. Validation
// and schema errors return before the classifier is called and leave the
// ledger untouched. A failed classifier call is still recorded.
func (s *Service) Submit(ctx context.Context, in models.RawInput) (models.PredictionRecord, error) {
	metrics.ObserveSubmission()

	vec, err := s.encoder.Encode(in)
	if err != nil {
		switch {
		case features.IsValidationError(err):
			metrics.ObserveValidationFailure()
		case features.IsSchemaError(err):
			metrics.ObserveSchemaFailure()
			logger.Log.WithError(err).Error("feature vector violates schema")
		}
		return models.PredictionRecord{}, err
	}

	// The submission completes even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	outcome := s.classifier.Predict(ctx, vec)
	if outcome.Risk == inference.ErrorRisk {
		metrics.ObserveInferenceFailure()
	} else if dashboard.IsHighRisk(outcome) {
		metrics.ObserveHighRisk()
	}

	record := s.ledger.Append(in, outcome)
	metrics.ObserveLedgerSize(s.ledger.Len())

	logger.Log.WithFields(map[string]interface{}{
		"record_id":    record.ID,
		"risk":         outcome.Risk,
		"cancer_stage": in.CancerStage,
		"country":      in.Country,
	}).Info("Prediction recorded")

	s.notify(ctx, record)
	return record, nil
}

func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *Service) Schema() features.Schema {
	return s.encoder.Schema()
}

func (s *Service) notify(ctx context.Context, record models.PredictionRecord) {
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, record); err != nil {
			metrics.ObserveSinkFailure()
			logger.Log.WithError(fmt.Errorf("sink %s: %w", sink.Name(), err)).WithField("record_id", record.ID).Warn("prediction sink failed")
		}
	}
}
