package predictor

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// Artifact is a logistic model exported by the offline training pipeline.
type Artifact struct {
	Model struct {
		Type         string   `json:"type"`
		Algorithm    string   `json:"algorithm"`
		Version      string   `json:"version"`
		FeatureNames []string `json:"feature_names"`
		Weights      struct {
			Bias         float64   `json:"bias"`
			Coefficients []float64 `json:"coefficients"`
		} `json:"weights"`
	} `json:"model"`
}

// Predictor scores feature maps against <dir>/<model>_latest.json and reloads
// the artifact when its modification time changes.
type Predictor struct {
	dir   string
	cache map[string]cachedArtifact
	mu    sync.RWMutex
}

type cachedArtifact struct {
	artifact Artifact
	modTime  int64
}

func NewPredictor(dir string) *Predictor {
	return &Predictor{
		dir:   dir,
		cache: make(map[string]cachedArtifact),
	}
}

// Predict returns the probability of the positive (high risk) class.
func (p *Predictor) Predict(model string, features map[string]float64) (float64, error) {
	artifact, err := p.loadArtifact(model)
	if err != nil {
		return 0, err
	}
	names := artifact.Model.FeatureNames
	coefficients := artifact.Model.Weights.Coefficients
	if len(names) == 0 {
		return 0, fmt.Errorf("artifact missing feature names")
	}
	if len(coefficients) != len(names) {
		return 0, fmt.Errorf("artifact has %d coefficients for %d features", len(coefficients), len(names))
	}
	if len(features) != len(names) {
		return 0, fmt.Errorf("expected %d features, got %d", len(names), len(features))
	}

	sum := artifact.Model.Weights.Bias
	for idx, name := range names {
		value, ok := features[name]
		if !ok {
			return 0, fmt.Errorf("missing feature %s", name)
		}
		sum += coefficients[idx] * value
	}
	return sigmoid(sum), nil
}

// FeatureNames reports the columns the current artifact expects.
func (p *Predictor) FeatureNames(model string) ([]string, error) {
	artifact, err := p.loadArtifact(model)
	if err != nil {
		return nil, err
	}
	return artifact.Model.FeatureNames, nil
}

func (p *Predictor) loadArtifact(model string) (Artifact, error) {
	latest := filepath.Join(p.dir, fmt.Sprintf("%s_latest.json", model))
	info, err := os.Stat(latest)
	if err != nil {
		return Artifact{}, err
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	cached, ok := p.cache[model]
	p.mu.RUnlock()
	if ok && cached.modTime == mod {
		return cached.artifact, nil
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("decoding artifact %s: %w", latest, err)
	}
	p.mu.Lock()
	p.cache[model] = cachedArtifact{artifact: artifact, modTime: mod}
	p.mu.Unlock()
	return artifact, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
