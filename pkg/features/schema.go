package features

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FeatureCount is the width of the vector the classifier was trained on.
const FeatureCount = 44

//go:embed schema.yaml
var defaultSchemaYAML []byte

type NumericField struct {
	Name string  `yaml:"name" json:"name"`
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
}

// BinaryField is encoded as a single 0/1 column for its reference value.
type BinaryField struct {
	Field     string   `yaml:"field" json:"field"`
	Values    []string `yaml:"values" json:"values"`
	Reference string   `yaml:"reference" json:"reference"`
}

// CategoricalField is encoded as a one-hot block with one column per value.
type CategoricalField struct {
	Field  string   `yaml:"field" json:"field"`
	Values []string `yaml:"values" json:"values"`
}

type Schema struct {
	Numeric     []NumericField     `yaml:"numeric" json:"numeric"`
	Flags       []string           `yaml:"flags" json:"flags"`
	Binary      []BinaryField      `yaml:"binary" json:"binary"`
	Categorical []CategoricalField `yaml:"categorical" json:"categorical"`
}

// DefaultSchema returns the schema compiled into the binary.
func DefaultSchema() Schema {
	schema, err := parseSchema(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded feature schema invalid: %v", err))
	}
	return schema
}

// LoadSchema reads a schema override. An empty path yields the default schema.
func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Schema{}, err
	}
	return parseSchema(content)
}

func parseSchema(content []byte) (Schema, error) {
	var schema Schema
	if err := yaml.Unmarshal(content, &schema); err != nil {
		return Schema{}, fmt.Errorf("parsing feature schema: %w", err)
	}
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// binaryFields and multiValuedFields fix which section each categorical form
// field belongs to.
var (
	binaryFields      = []string{"gender", "family_history"}
	multiValuedFields = []string{"country", "cancer_stage", "smoking_status", "treatment_type"}
)

// Validate checks that every form field is declared exactly once in its
// section, that every domain is usable and that the schema describes exactly
// FeatureCount columns.
func (s Schema) Validate() error {
	numeric := make([]string, 0, len(s.Numeric))
	for _, f := range s.Numeric {
		numeric = append(numeric, f.Name)
	}
	if err := requireFields("numeric", numeric, sortedKeys(numericFields)); err != nil {
		return err
	}
	if err := requireFields("flags", s.Flags, sortedKeys(flagFields)); err != nil {
		return err
	}
	binary := make([]string, 0, len(s.Binary))
	for _, b := range s.Binary {
		binary = append(binary, b.Field)
	}
	if err := requireFields("binary", binary, binaryFields); err != nil {
		return err
	}
	categorical := make([]string, 0, len(s.Categorical))
	for _, c := range s.Categorical {
		categorical = append(categorical, c.Field)
	}
	if err := requireFields("categorical", categorical, multiValuedFields); err != nil {
		return err
	}

	for _, f := range s.Numeric {
		if f.Min > f.Max {
			return fmt.Errorf("numeric field %q: min %v greater than max %v", f.Name, f.Min, f.Max)
		}
	}
	for _, b := range s.Binary {
		if len(b.Values) != 2 {
			return fmt.Errorf("binary field %q must have exactly two values", b.Field)
		}
		if !contains(b.Values, b.Reference) {
			return fmt.Errorf("binary field %q: reference %q not in values", b.Field, b.Reference)
		}
	}
	for _, c := range s.Categorical {
		if len(c.Values) == 0 {
			return fmt.Errorf("categorical field %q has an empty domain", c.Field)
		}
	}

	names := s.FeatureNames()
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = struct{}{}
	}
	if len(names) != FeatureCount {
		return fmt.Errorf("schema declares %d features, classifier expects %d", len(names), FeatureCount)
	}
	return nil
}

// FeatureNames returns every column name of the encoded vector, sorted.
func (s Schema) FeatureNames() []string {
	var names []string
	for _, f := range s.Numeric {
		names = append(names, f.Name)
	}
	names = append(names, s.Flags...)
	for _, b := range s.Binary {
		names = append(names, featureKey(b.Field, b.Reference))
	}
	for _, c := range s.Categorical {
		for _, v := range c.Values {
			names = append(names, featureKey(c.Field, v))
		}
	}
	sort.Strings(names)
	return names
}

// requireFields checks that got names each field of want exactly once.
func requireFields(section string, got, want []string) error {
	seen := make(map[string]int, len(got))
	for _, name := range got {
		if !contains(want, name) {
			return fmt.Errorf("%s: unexpected field %q", section, name)
		}
		seen[name]++
		if seen[name] > 1 {
			return fmt.Errorf("%s: field %q declared more than once", section, name)
		}
	}
	for _, name := range want {
		if seen[name] == 0 {
			return fmt.Errorf("%s: missing field %q", section, name)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func featureKey(prefix, value string) string {
	return prefix + "_" + strings.ReplaceAll(value, " ", "_")
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
