package dashboard

import (
	"strings"

	"github.com/pulmoprobe/platform/pkg/common/models"
)

// highRiskMarker classifies an outcome as high risk by substring. Error
// outcomes do not contain it and count as low risk.
const highRiskMarker = "High"

// Engine derives dashboard statistics from a ledger snapshot. It keeps no
// state between calls; every read recomputes from the records it is given.
type Engine struct {
	modelAccuracy float64
}

func NewEngine(modelAccuracy float64) *Engine {
	return &Engine{modelAccuracy: modelAccuracy}
}

func (e *Engine) Compute(records []models.PredictionRecord) models.AggregateSnapshot {
	snapshot := models.AggregateSnapshot{
		TotalPredictions:  len(records),
		StageDistribution: map[string]int{},
		StageSeries:       []models.StageCount{},
		ModelAccuracy:     e.modelAccuracy,
	}

	countries := make(map[string]struct{})
	seriesIndex := make(map[string]int)
	for _, record := range records {
		if IsHighRisk(record.Outcome) {
			snapshot.HighRiskCases++
		}

		countries[record.Inputs.Country] = struct{}{}

		stage := record.Inputs.CancerStage
		snapshot.StageDistribution[stage]++
		idx, ok := seriesIndex[stage]
		if !ok {
			idx = len(snapshot.StageSeries)
			seriesIndex[stage] = idx
			snapshot.StageSeries = append(snapshot.StageSeries, models.StageCount{
				Stage: stage,
				Name:  DisplayName(stage),
			})
		}
		snapshot.StageSeries[idx].Count++
	}

	snapshot.UniqueCountries = len(countries)
	snapshot.RiskBreakdown = models.RiskBreakdown{
		Low:  snapshot.TotalPredictions - snapshot.HighRiskCases,
		High: snapshot.HighRiskCases,
	}
	return snapshot
}

func IsHighRisk(outcome models.PredictionOutcome) bool {
	return strings.Contains(outcome.Risk, highRiskMarker)
}

// DisplayName renders enum values such as Stage_II as "Stage II".
func DisplayName(value string) string {
	return strings.ReplaceAll(value, "_", " ")
}
