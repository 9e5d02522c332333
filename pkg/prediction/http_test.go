package prediction

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pulmoprobe/platform/pkg/analytics/dashboard"
	"github.com/pulmoprobe/platform/pkg/common/models"
)

const validBody = `{"age":"55","bmi":22.5,"cholesterol_level":180,"hypertension":1,"asthma":false,
"cirrhosis":0,"other_cancer":0,"gender":"Female","country":"Czech Republic","family_history":"Yes",
"cancer_stage":"Stage_III","smoking_status":"Former_Smoker","treatment_type":"Radiation"}`

func newTestRouter(svc *Service) *mux.Router {
	router := mux.NewRouter()
	NewHTTPHandler(svc, dashboard.NewEngine(94.5), 1<<16).Register(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHTTPSubmitAndRead(t *testing.T) {
	classifier := &stubClassifier{outcomes: []models.PredictionOutcome{{Risk: "High Risk of Non-Survival", Confidence: "66.2%"}}}
	svc := newTestService(classifier)
	router := newTestRouter(svc)

	rec := do(t, router, http.MethodPost, "/predictions", validBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.PredictionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if created.Inputs.Country != "Czech Republic" || created.Inputs.Hypertension != 1 {
		t.Fatalf("unexpected inputs %+v", created.Inputs)
	}
	if classifier.lastVec["country_Czech_Republic"] != 1 || classifier.lastVec["gender_Male"] != 0 {
		t.Fatalf("unexpected encoded vector %v", classifier.lastVec)
	}

	rec = do(t, router, http.MethodGet, "/predictions/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for record lookup, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/predictions", "")
	var list []models.PredictionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one record in list, got %s", rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/dashboard", "")
	var snap models.AggregateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if snap.TotalPredictions != 1 || snap.HighRiskCases != 1 || snap.StageDistribution["Stage_III"] != 1 {
		t.Fatalf("unexpected dashboard %+v", snap)
	}

	rec = do(t, router, http.MethodGet, "/report.csv", "")
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected report content type %s", rec.Header().Get("Content-Type"))
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil || len(rows) != 2 || rows[1][0] != created.ID {
		t.Fatalf("unexpected report rows %v (%v)", rows, err)
	}
}

func TestHTTPSubmitValidationError(t *testing.T) {
	svc := newTestService(&stubClassifier{outcomes: []models.PredictionOutcome{{Risk: "Low Risk"}}})
	router := newTestRouter(svc)

	body := strings.Replace(validBody, `"bmi":22.5`, `"bmi":"heavy"`, 1)
	rec := do(t, router, http.MethodPost, "/predictions", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Field != "bmi" {
		t.Fatalf("expected bmi field error, got %s", rec.Body.String())
	}
	if svc.Ledger().Len() != 0 {
		t.Fatal("ledger must stay empty")
	}
}

func TestHTTPSubmitInvalidFlagNamesField(t *testing.T) {
	svc := newTestService(&stubClassifier{outcomes: []models.PredictionOutcome{{Risk: "Low Risk"}}})
	body := strings.Replace(validBody, `"hypertension":1`, `"hypertension":2`, 1)

	rec := do(t, newTestRouter(svc), http.MethodPost, "/predictions", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Field != "hypertension" {
		t.Fatalf("expected hypertension field error, got %s", rec.Body.String())
	}
	if svc.Ledger().Len() != 0 {
		t.Fatal("ledger must stay empty")
	}
}

func TestHTTPSubmitMalformedBody(t *testing.T) {
	svc := newTestService(&stubClassifier{outcomes: []models.PredictionOutcome{{Risk: "Low Risk"}}})
	rec := do(t, newTestRouter(svc), http.MethodPost, "/predictions", `{"age":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHTTPUnknownRecord(t *testing.T) {
	svc := newTestService(&stubClassifier{outcomes: []models.PredictionOutcome{{Risk: "Low Risk"}}})
	rec := do(t, newTestRouter(svc), http.MethodGet, "/predictions/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHTTPSchema(t *testing.T) {
	svc := newTestService(&stubClassifier{outcomes: []models.PredictionOutcome{{Risk: "Low Risk"}}})
	rec := do(t, newTestRouter(svc), http.MethodGet, "/schema", "")

	var schema struct {
		Categorical []struct {
			Field  string   `json:"field"`
			Values []string `json:"values"`
		} `json:"categorical"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &schema); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if len(schema.Categorical) != 4 || len(schema.Categorical[0].Values) != 26 {
		t.Fatalf("unexpected schema %s", rec.Body.String())
	}
}

func TestHTTPEmptyDashboard(t *testing.T) {
	svc := newTestService(&stubClassifier{outcomes: []models.PredictionOutcome{{Risk: "Low Risk"}}})
	rec := do(t, newTestRouter(svc), http.MethodGet, "/dashboard", "")

	if !strings.Contains(rec.Body.String(), `"stage_distribution":{}`) {
		t.Fatalf("expected empty stage map, got %s", rec.Body.String())
	}
}
