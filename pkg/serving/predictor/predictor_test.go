package predictor

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, dir string, names []string, bias float64, coefficients []float64) {
	t.Helper()
	var artifact Artifact
	artifact.Model.Type = "classification"
	artifact.Model.Algorithm = "logistic_regression"
	artifact.Model.FeatureNames = names
	artifact.Model.Weights.Bias = bias
	artifact.Model.Weights.Coefficients = coefficients

	content, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pulmoprobe_latest.json"), content, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

func TestPredict(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, []string{"age", "gender_Male"}, -1, []float64{0.02, 0.5})

	p := NewPredictor(dir)
	score, err := p.Predict("pulmoprobe", map[string]float64{"age": 50, "gender_Male": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 1 / (1 + math.Exp(-(-1 + 0.02*50 + 0.5)))
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, score)
	}
}

func TestPredictRejectsMismatchedFeatures(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, []string{"age", "gender_Male"}, 0, []float64{1, 1})
	p := NewPredictor(dir)

	if _, err := p.Predict("pulmoprobe", map[string]float64{"age": 50}); err == nil {
		t.Fatal("expected error for missing feature")
	}
	if _, err := p.Predict("pulmoprobe", map[string]float64{"age": 50, "bmi": 20}); err == nil {
		t.Fatal("expected error for unknown feature")
	}
	if _, err := p.Predict("pulmoprobe", map[string]float64{"age": 1, "gender_Male": 0, "bmi": 2}); err == nil {
		t.Fatal("expected error for extra feature")
	}
}

func TestPredictMissingArtifact(t *testing.T) {
	if _, err := NewPredictor(t.TempDir()).Predict("pulmoprobe", map[string]float64{}); err == nil {
		t.Fatal("expected error without artifact")
	}
}
