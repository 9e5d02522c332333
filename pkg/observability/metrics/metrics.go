package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	submissionsTotal      atomic.Int64
	validationFailed      atomic.Int64
	schemaFailed          atomic.Int64
	inferenceFailed       atomic.Int64
	highRiskTotal         atomic.Int64
	sinkFailed            atomic.Int64
	ledgerSize            atomic.Int64
	classifierPredictions atomic.Int64
	auditEventsStored     atomic.Int64
)

func ObserveSubmission() { submissionsTotal.Add(1) }

func ObserveValidationFailure() { validationFailed.Add(1) }

func ObserveSchemaFailure() { schemaFailed.Add(1) }

func ObserveInferenceFailure() { inferenceFailed.Add(1) }

func ObserveHighRisk() { highRiskTotal.Add(1) }

func ObserveSinkFailure() { sinkFailed.Add(1) }

func ObserveLedgerSize(n int) { ledgerSize.Store(int64(n)) }

func ObserveClassifierPrediction() { classifierPredictions.Add(1) }

func ObserveAuditStored() { auditEventsStored.Add(1) }

type gauge struct {
	name string
	help string
	kind string
	v    *atomic.Int64
}

var exported = []gauge{
	{"pulmoprobe_submissions_total", "Prediction submissions received.", "counter", &submissionsTotal},
	{"pulmoprobe_validation_failures_total", "Submissions rejected by feature validation.", "counter", &validationFailed},
	{"pulmoprobe_schema_failures_total", "Submissions aborted by a feature schema mismatch.", "counter", &schemaFailed},
	{"pulmoprobe_inference_failures_total", "Classifier calls recorded as Error outcomes.", "counter", &inferenceFailed},
	{"pulmoprobe_high_risk_total", "Recorded outcomes classified as high risk.", "counter", &highRiskTotal},
	{"pulmoprobe_sink_failures_total", "Failed deliveries to event and dashboard sinks.", "counter", &sinkFailed},
	{"pulmoprobe_ledger_records", "Records currently held in the prediction ledger.", "gauge", &ledgerSize},
	{"pulmoprobe_classifier_predictions_total", "Predictions served by the reference classifier.", "counter", &classifierPredictions},
	{"pulmoprobe_audit_events_stored_total", "Prediction events written to the audit trail.", "counter", &auditEventsStored},
}

// Handler serves the counters in the Prometheus text exposition format.
func Handler(w http.ResponseWriter, r *http.Request) {
	WritePrometheus(w)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeAll(w)
}

func writeAll(w io.Writer) {
	for _, g := range exported {
		fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", g.name, g.kind)
		fmt.Fprintf(w, "%s %d\n", g.name, g.v.Load())
	}
}
