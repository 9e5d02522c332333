package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Numeric holds the textual form of a numeric form field. Form clients send
// either JSON numbers or numeric strings; parsing and range checks happen in
// the feature encoder so that bad values surface as validation errors.
type Numeric string

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(s))
		return nil
	}
	*n = Numeric(data)
	return nil
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(n))
}

// Flag is a comorbidity checkbox. Accepts 0/1, "0"/"1" or true/false; any
// other value decodes to InvalidFlag so the encoder can name the field.
type Flag int

const InvalidFlag Flag = -1

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(data)), `"`) {
	case "0", "false", "null", "":
		*f = 0
	case "1", "true":
		*f = 1
	default:
		*f = InvalidFlag
	}
	return nil
}

// Patient form submission
type RawInput struct {
	Age              Numeric `json:"age"`
	BMI              Numeric `json:"bmi"`
	CholesterolLevel Numeric `json:"cholesterol_level"`

	Hypertension Flag `json:"hypertension"`
	Asthma       Flag `json:"asthma"`
	Cirrhosis    Flag `json:"cirrhosis"`
	OtherCancer  Flag `json:"other_cancer"`

	Gender        string `json:"gender"`
	Country       string `json:"country"`
	FamilyHistory string `json:"family_history"`
	CancerStage   string `json:"cancer_stage"`
	SmokingStatus string `json:"smoking_status"`
	TreatmentType string `json:"treatment_type"`
}

// FeatureVector is the classifier request body: feature name to value.
type FeatureVector map[string]float64

// Inference
type PredictionOutcome struct {
	Risk       string `json:"risk"`
	Confidence string `json:"confidence"`
	Error      string `json:"error,omitempty"`
}

// Ledger
type PredictionRecord struct {
	ID        string            `json:"id"`
	Inputs    RawInput          `json:"inputs"`
	Outcome   PredictionOutcome `json:"outcome"`
	CreatedAt time.Time         `json:"created_at"`
}

// Dashboard
type RiskBreakdown struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

type StageCount struct {
	Stage string `json:"stage"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type AggregateSnapshot struct {
	TotalPredictions  int            `json:"total_predictions"`
	HighRiskCases     int            `json:"high_risk_cases"`
	RiskBreakdown     RiskBreakdown  `json:"risk_breakdown"`
	StageDistribution map[string]int `json:"stage_distribution"`
	StageSeries       []StageCount   `json:"stage_series"`
	UniqueCountries   int            `json:"unique_countries"`
	ModelAccuracy     float64        `json:"model_accuracy"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const EventPredictionRecorded = "prediction.recorded"
