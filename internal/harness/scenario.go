package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a planner test scenario.
// A scenario loads a catalog, stores one record with its line items, builds
// the record's plan preview and asserts on the result.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the CUE catalog directory. Relative paths are resolved
	// against the scenario file's directory.
	Catalog string `yaml:"catalog"`

	// ComputedAt optionally fixes the planner clock (RFC 3339). If empty,
	// testutil.DefaultTime is used.
	ComputedAt string `yaml:"computed_at,omitempty"`

	// Fixture is the workspace config, record and line items.
	Fixture `yaml:",inline"`

	// Assertions validate the plan preview.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a plan preview.
type Assertion struct {
	// Type specifies the assertion type:
	// - "groups": the group ids, in order, equal IDs
	// - "candidates": the template candidates of Group, in order, equal Templates
	// - "matched_rules": the rule ids matched for Group, in order, equal Rules
	// - "warnings_contain": some top-level warning contains Text
	// - "confidence": the classification confidence of LineItem equals Value
	Type string `yaml:"type"`

	IDs       []string `yaml:"ids,omitempty"`
	Group     string   `yaml:"group,omitempty"`
	Templates []string `yaml:"templates,omitempty"`
	Rules     []string `yaml:"rules,omitempty"`
	Text      string   `yaml:"text,omitempty"`
	LineItem  string   `yaml:"line_item,omitempty"`
	Value     *float64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertGroups          = "groups"
	AssertCandidates      = "candidates"
	AssertMatchedRules    = "matched_rules"
	AssertWarningsContain = "warnings_contain"
	AssertConfidence      = "confidence"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the catalog path BEFORE validation
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
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
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if info, err := os.Stat(s.Catalog); err != nil || !info.IsDir() {
		return fmt.Errorf("catalog directory not found: %s", s.Catalog)
	}
	if s.ComputedAt != "" {
		if _, err := time.Parse(time.RFC3339, s.ComputedAt); err != nil {
			return fmt.Errorf("computed_at: %w", err)
		}
	}
	if err := s.Fixture.validate(); err != nil {
		return err
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertGroups:
		if len(a.IDs) == 0 {
			return fmt.Errorf("assertions[%d]: ids list is required for groups", index)
		}
	case AssertCandidates:
		if a.Group == "" {
			return fmt.Errorf("assertions[%d]: group is required for candidates", index)
		}
	case AssertMatchedRules:
		if a.Group == "" {
			return fmt.Errorf("assertions[%d]: group is required for matched_rules", index)
		}
	case AssertWarningsContain:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for warnings_contain", index)
		}
	case AssertConfidence:
		if a.LineItem == "" {
			return fmt.Errorf("assertions[%d]: line_item is required for confidence", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for confidence", index)
		}
		if *a.Value < 0 || *a.Value > 1 {
			return fmt.Errorf("assertions[%d]: value must be within [0, 1]", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
