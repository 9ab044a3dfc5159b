package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML test scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Start is the RFC 3339 wall time of the first call.
	// Empty uses testutil.DefaultEpoch.
	Start string `yaml:"start,omitempty"`

	// Policy overrides the operator filter gate policy.
	Policy *PolicySpec `yaml:"policy,omitempty"`

	// Lists generates address lists available as "$name".
	Lists map[string]ListSpec `yaml:"lists,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// PolicySpec mirrors opfilter.Policy.
type PolicySpec struct {
	FailOpen    bool `yaml:"fail_open"`
	OwnerBypass bool `yaml:"owner_bypass"`
}

// ListSpec generates Count identities labeled fmt.Sprintf(Label, i).
type ListSpec struct {
	Label string `yaml:"label"`
	Count int    `yaml:"count"`
}

// Step is either a call or a clock advance.
type Step struct {
	Call   string         `yaml:"call,omitempty"`
	Caller string         `yaml:"caller,omitempty"`
	Target string         `yaml:"target,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`
	Expect *Expect        `yaml:"expect,omitempty"`

	// Save stores result fields of a successful call: variable -> field.
	Save map[string]string `yaml:"save,omitempty"`

	// Advance moves the wall clock (Go duration syntax).
	Advance string `yaml:"advance,omitempty"`
}

// Expect describes the expected outcome of a call. A nil Expect means the
// call must succeed.
type Expect struct {
	// Status is "ok" (default) or "failed".
	Status string `yaml:"status,omitempty"`

	// Error is the expected error code of a failed call.
	Error string `yaml:"error,omitempty"`

	// Result is a subset of the expected result object.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Kind and Source select events (event_count, event_contains).
	Kind   string `yaml:"kind,omitempty"`
	Source string `yaml:"source,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected order (event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Data is a subset of the expected payload (event_contains).
	Data map[string]any `yaml:"data,omitempty"`

	// Edition, Expect and Balances check one edition (final_state).
	Edition  string           `yaml:"edition,omitempty"`
	Expect   map[string]any   `yaml:"expect,omitempty"`
	Balances map[string]int64 `yaml:"balances,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertEventContains = "event_contains"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Start != "" {
		if _, err := time.Parse(time.RFC3339, s.Start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}

	for name, list := range s.Lists {
		if !strings.Contains(list.Label, "%") {
			return fmt.Errorf("lists.%s: label must contain a format verb", name)
		}
		if list.Count <= 0 {
			return fmt.Errorf("lists.%s: count must be positive", name)
		}
	}

	for i, step := range s.Steps {
		switch {
		case step.Call != "" && step.Advance != "":
			return fmt.Errorf("steps[%d]: call and advance are exclusive", i)
		case step.Advance != "":
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("steps[%d]: advance: %w", i, err)
			}
		case step.Call == "":
			return fmt.Errorf("steps[%d]: call or advance is required", i)
		case step.Caller == "":
			return fmt.Errorf("steps[%d]: caller is required", i)
		}
		if step.Expect != nil {
			switch step.Expect.Status {
			case "", "ok":
				if step.Expect.Error != "" {
					return fmt.Errorf("steps[%d].expect: error requires status failed", i)
				}
			case "failed":
			default:
				return fmt.Errorf("steps[%d].expect: unknown status %q", i, step.Expect.Status)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for event_order", index)
		}
	case AssertEventContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_contains", index)
		}
	case AssertFinalState:
		if a.Edition == "" {
			return fmt.Errorf("assertions[%d]: edition is required for final_state", index)
		}
		if len(a.Expect) == 0 && len(a.Balances) == 0 {
			return fmt.Errorf("assertions[%d]: expect or balances is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
