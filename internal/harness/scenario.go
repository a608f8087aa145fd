package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/schema"
)

// DefaultCollection is used when a scenario names no collection.
const DefaultCollection = "records"

// Scenario defines one reconciliation test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Collection the record is saved into. Default: "records".
	Collection string `yaml:"collection,omitempty"`

	// Reserved lists framework-owned fields beyond _id, _rev and _isNew.
	Reserved []string `yaml:"reserved,omitempty"`

	// Schema the record is reconciled against.
	Schema SchemaSpec `yaml:"schema"`

	// DeepSnapshot isolates nested values from the validator.
	DeepSnapshot bool `yaml:"deep_snapshot,omitempty"`

	// Record holds the initial fields, in order.
	Record record.Document `yaml:"record"`

	// Passes is the number of times the record is saved. Default: 1.
	Passes int `yaml:"passes,omitempty"`

	// Expect describes the expected end state.
	Expect Expect `yaml:"expect"`
}

// SchemaSpec locates a schema: inline Source or a Path relative to the
// scenario file.
type SchemaSpec struct {
	Kind        string `yaml:"kind"` // "cue" or "jsonschema"
	Definition  string `yaml:"definition,omitempty"`
	Source      string `yaml:"source,omitempty"`
	Path        string `yaml:"path,omitempty"`
	UnknownKeys string `yaml:"unknown_keys,omitempty"`
}

// Expect specifies the expected end state. Every clause is optional.
type Expect struct {
	// Record is the expected document without _id, _rev and _isNew.
	Record *record.Document `yaml:"record,omitempty"`

	// Stored is the expected latest stored revision body.
	Stored *record.Document `yaml:"stored,omitempty"`

	// NotStored expects that nothing was persisted.
	NotStored bool `yaml:"not_stored,omitempty"`

	// Error expects the last pass to be rejected.
	Error *ErrorExpect `yaml:"error,omitempty"`
}

// ErrorExpect describes an expected rejection.
type ErrorExpect struct {
	// Fields are the fields the issues name, in any order.
	Fields []string `yaml:"fields"`

	// Codes, when set, are the distinct issue codes, in any order.
	Codes []string `yaml:"codes,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Returns an error if
// the file doesn't exist, is malformed, contains unknown fields (typos), or
// is missing required fields. A relative schema path is resolved against
// the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if p := scenario.Schema.Path; p != "" && !filepath.IsAbs(p) {
		scenario.Schema.Path = filepath.Join(filepath.Dir(path), p)
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without validating file references.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Schema.Kind {
	case schema.KindCUE, schema.KindJSONSchema:
	case "":
		return fmt.Errorf("schema.kind is required")
	default:
		return fmt.Errorf("schema.kind must be %s or %s, got %q", schema.KindCUE, schema.KindJSONSchema, s.Schema.Kind)
	}
	switch {
	case s.Schema.Source == "" && s.Schema.Path == "":
		return fmt.Errorf("schema needs source or path")
	case s.Schema.Source != "" && s.Schema.Path != "":
		return fmt.Errorf("schema source and path are mutually exclusive")
	}
	if s.Schema.Path != "" {
		if _, err := os.Stat(s.Schema.Path); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema.Path)
		}
	}
	if _, err := schema.ParseUnknownKeys(s.Schema.UnknownKeys); err != nil {
		return fmt.Errorf("schema.unknown_keys: %w", err)
	}

	if s.Passes < 0 {
		return fmt.Errorf("passes must be non-negative")
	}
	if s.Expect.NotStored && s.Expect.Stored != nil {
		return fmt.Errorf("expect: not_stored and stored are mutually exclusive")
	}
	if e := s.Expect.Error; e != nil && len(e.Fields) == 0 && len(e.Codes) == 0 {
		return fmt.Errorf("expect.error: fields or codes is required")
	}
	return nil
}
