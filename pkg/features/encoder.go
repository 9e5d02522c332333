package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pulmoprobe/platform/pkg/common/models"
)

var (
	numericFields = map[string]func(models.RawInput) models.Numeric{
		"age":               func(in models.RawInput) models.Numeric { return in.Age },
		"bmi":               func(in models.RawInput) models.Numeric { return in.BMI },
		"cholesterol_level": func(in models.RawInput) models.Numeric { return in.CholesterolLevel },
	}
	flagFields = map[string]func(models.RawInput) models.Flag{
		"hypertension": func(in models.RawInput) models.Flag { return in.Hypertension },
		"asthma":       func(in models.RawInput) models.Flag { return in.Asthma },
		"cirrhosis":    func(in models.RawInput) models.Flag { return in.Cirrhosis },
		"other_cancer": func(in models.RawInput) models.Flag { return in.OtherCancer },
	}
	categoricalFields = map[string]func(models.RawInput) string{
		"gender":         func(in models.RawInput) string { return in.Gender },
		"country":        func(in models.RawInput) string { return in.Country },
		"family_history": func(in models.RawInput) string { return in.FamilyHistory },
		"cancer_stage":   func(in models.RawInput) string { return in.CancerStage },
		"smoking_status": func(in models.RawInput) string { return in.SmokingStatus },
		"treatment_type": func(in models.RawInput) string { return in.TreatmentType },
	}
)

// Encoder turns a form submission into the classifier's feature vector.
type Encoder struct {
	schema Schema
	keys   map[string]struct{}
}

func NewEncoder(schema Schema) *Encoder {
	keys := make(map[string]struct{}, FeatureCount)
	for _, name := range schema.FeatureNames() {
		keys[name] = struct{}{}
	}
	return &Encoder{schema: schema, keys: keys}
}

func (e *Encoder) Schema() Schema {
	return e.schema
}

// Encode validates in and returns its feature vector. Validation failures are
// *ValidationError; a vector that does not match the schema is *SchemaError.
func (e *Encoder) Encode(in models.RawInput) (models.FeatureVector, error) {
	vec := make(models.FeatureVector, len(e.keys))

	for _, f := range e.schema.Numeric {
		value, err := parseNumeric(f, numericFields[f.Name](in))
		if err != nil {
			return nil, err
		}
		vec[f.Name] = value
	}

	for _, name := range e.schema.Flags {
		flag := flagFields[name](in)
		if flag != 0 && flag != 1 {
			return nil, invalid(name, errInvalidFlag)
		}
		vec[name] = float64(flag)
	}

	for _, b := range e.schema.Binary {
		if err := encodeBinary(vec, b, categoricalFields[b.Field](in)); err != nil {
			return nil, err
		}
	}

	for _, c := range e.schema.Categorical {
		if err := oneHot(vec, c.Field, categoricalFields[c.Field](in), c.Values); err != nil {
			return nil, err
		}
	}

	if err := e.verify(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (e *Encoder) verify(vec models.FeatureVector) error {
	for key := range vec {
		if _, ok := e.keys[key]; !ok {
			return &SchemaError{Expected: len(e.keys), Got: len(vec), Key: key}
		}
	}
	if len(vec) != len(e.keys) {
		return &SchemaError{Expected: len(e.keys), Got: len(vec)}
	}
	return nil
}

func parseNumeric(f NumericField, raw models.Numeric) (float64, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return 0, invalid(f.Name, errMissingField)
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, invalid(f.Name, fmt.Errorf("%q: %w", text, errNotNumeric))
	}
	if value < f.Min || value > f.Max {
		return 0, invalid(f.Name, fmt.Errorf("%v not within [%v, %v]: %w", value, f.Min, f.Max, errOutOfRange))
	}
	return value, nil
}

// encodeBinary emits one column, set iff value is the reference category.
func encodeBinary(vec models.FeatureVector, b BinaryField, value string) error {
	if value == "" {
		return invalid(b.Field, errMissingField)
	}
	if !contains(b.Values, value) {
		return invalid(b.Field, fmt.Errorf("%q: %w", value, errOutOfDomain))
	}
	vec[featureKey(b.Field, b.Reference)] = indicator(value == b.Reference)
	return nil
}

// oneHot emits one column per domain member; exactly one is set.
func oneHot(vec models.FeatureVector, prefix, value string, domain []string) error {
	if value == "" {
		return invalid(prefix, errMissingField)
	}
	if !contains(domain, value) {
		return invalid(prefix, fmt.Errorf("%q: %w", value, errOutOfDomain))
	}
	for _, member := range domain {
		vec[featureKey(prefix, member)] = indicator(member == value)
	}
	return nil
}

func indicator(set bool) float64 {
	if set {
		return 1
	}
	return 0
}
