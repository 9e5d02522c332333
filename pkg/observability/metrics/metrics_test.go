package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWritePrometheus(t *testing.T) {
	before := submissionsTotal.Load()
	ObserveSubmission()
	ObserveLedgerSize(7)

	rec := httptest.NewRecorder()
	WritePrometheus(rec)

	body := rec.Body.String()
	if !strings.Contains(body, "# TYPE pulmoprobe_ledger_records gauge") {
		t.Fatalf("missing ledger gauge type line:\n%s", body)
	}
	if !strings.Contains(body, "pulmoprobe_ledger_records 7\n") {
		t.Fatalf("missing ledger gauge value:\n%s", body)
	}
	if submissionsTotal.Load() != before+1 {
		t.Fatalf("expected submissions counter to advance")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %s", ct)
	}
}
