package dashboard

import (
	"reflect"
	"testing"

	"github.com/pulmoprobe/platform/pkg/common/models"
)

func record(country, stage, risk string) models.PredictionRecord {
	return models.PredictionRecord{
		Inputs:  models.RawInput{Country: country, CancerStage: stage},
		Outcome: models.PredictionOutcome{Risk: risk},
	}
}

func TestComputeEmpty(t *testing.T) {
	snap := NewEngine(94.5).Compute(nil)

	if snap.TotalPredictions != 0 || snap.HighRiskCases != 0 || snap.UniqueCountries != 0 {
		t.Fatalf("expected zero counts, got %+v", snap)
	}
	if snap.RiskBreakdown != (models.RiskBreakdown{}) {
		t.Fatalf("expected empty breakdown, got %+v", snap.RiskBreakdown)
	}
	if snap.StageDistribution == nil || len(snap.StageDistribution) != 0 {
		t.Fatalf("expected empty non-nil stage map, got %v", snap.StageDistribution)
	}
	if snap.ModelAccuracy != 94.5 {
		t.Fatalf("expected configured accuracy, got %v", snap.ModelAccuracy)
	}
}

func TestComputeLowThenHigh(t *testing.T) {
	records := []models.PredictionRecord{
		record("Germany", "Stage_IV", "High Risk, Stage IV"),
		record("Germany", "Stage_II", "Low Risk"),
	}

	snap := NewEngine(94.5).Compute(records)
	if snap.TotalPredictions != 2 || snap.HighRiskCases != 1 {
		t.Fatalf("expected total=2 high=1, got %+v", snap)
	}
	if snap.RiskBreakdown != (models.RiskBreakdown{Low: 1, High: 1}) {
		t.Fatalf("unexpected breakdown %+v", snap.RiskBreakdown)
	}
	if snap.UniqueCountries != 1 {
		t.Fatalf("expected 1 country, got %d", snap.UniqueCountries)
	}
}

func TestComputeErrorOutcomeCountsAsLow(t *testing.T) {
	records := []models.PredictionRecord{
		record("Spain", "Stage_III", "Error"),
		record("Italy", "Stage_III", "high risk"),
		record("Malta", "Stage_III", "High Risk of Non-Survival"),
	}

	snap := NewEngine(0).Compute(records)
	if snap.HighRiskCases != 1 {
		t.Fatalf("expected only the case-sensitive High outcome to count, got %d", snap.HighRiskCases)
	}
	if snap.RiskBreakdown.Low != 2 {
		t.Fatalf("expected 2 low, got %d", snap.RiskBreakdown.Low)
	}
	if snap.UniqueCountries != 3 {
		t.Fatalf("expected 3 countries, got %d", snap.UniqueCountries)
	}
}

func TestComputeStagesAreLazy(t *testing.T) {
	records := []models.PredictionRecord{
		record("France", "Stage_IV", "Low Risk"),
		record("France", "Stage_II", "Low Risk"),
		record("France", "Stage_IV", "High Risk"),
	}

	snap := NewEngine(94.5).Compute(records)
	want := map[string]int{"Stage_IV": 2, "Stage_II": 1}
	if !reflect.DeepEqual(snap.StageDistribution, want) {
		t.Fatalf("expected %v, got %v", want, snap.StageDistribution)
	}
	if _, ok := snap.StageDistribution["Stage_III"]; ok {
		t.Fatal("unobserved stage must not appear")
	}

	wantSeries := []models.StageCount{
		{Stage: "Stage_IV", Name: "Stage IV", Count: 2},
		{Stage: "Stage_II", Name: "Stage II", Count: 1},
	}
	if !reflect.DeepEqual(snap.StageSeries, wantSeries) {
		t.Fatalf("expected series %v, got %v", wantSeries, snap.StageSeries)
	}
}

func TestComputeIsPure(t *testing.T) {
	records := []models.PredictionRecord{
		record("Poland", "Stage_II", "High Risk"),
		record("Greece", "Stage_III", "Low Risk"),
	}
	engine := NewEngine(94.5)

	first := engine.Compute(records)
	second := engine.Compute(records)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("compute not deterministic: %+v vs %+v", first, second)
	}
	if records[0].Outcome.Risk != "High Risk" {
		t.Fatal("compute mutated its input")
	}
}
