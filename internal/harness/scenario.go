package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a cache conformance scenario: a sequence of writes,
// reads, and resets against a fresh cache, with assertions on read
// results and on the final store image.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named
	// after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is inline CUE policy configuration. Empty means no
	// policies: default identity on "id", arguments ignored for
	// storage keys, overwrite on conflict.
	Config string `yaml:"config,omitempty"`

	// Steps is the operation sequence. Each step is exactly one of
	// write, read, or reset.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store image after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one cache operation. Exactly one of the fields is set.
type Step struct {
	Write *WriteStep `yaml:"write,omitempty"`
	Read  *ReadStep  `yaml:"read,omitempty"`
	Reset bool       `yaml:"reset,omitempty"`
}

// WriteStep normalizes a payload into the cache.
type WriteStep struct {
	// Shape is the selection in JSON wire format.
	Shape string `yaml:"shape"`

	// Payload is the response data the shape describes.
	Payload map[string]interface{} `yaml:"payload"`

	// Vars binds operation variables referenced by the shape.
	Vars map[string]interface{} `yaml:"vars,omitempty"`

	// Mutation writes under the mutation root instead of the query root.
	Mutation bool `yaml:"mutation,omitempty"`

	// Expect validates the write outcome. Nil skips validation.
	Expect *WriteExpect `yaml:"expect,omitempty"`
}

// WriteExpect specifies expected write behavior.
type WriteExpect struct {
	// Changed lists the identities the write must have touched,
	// exactly and in sorted order.
	Changed []string `yaml:"changed"`
}

// ReadStep denormalizes a selection out of the cache and optionally
// validates the result.
type ReadStep struct {
	Shape string                 `yaml:"shape"`
	Vars  map[string]interface{} `yaml:"vars,omitempty"`

	// From reads from an entity identity instead of the query root.
	From string `yaml:"from,omitempty"`

	// Expect validates the read result. Nil skips validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected read behavior.
type ExpectClause struct {
	// Complete asserts the completeness flag when set.
	Complete *bool `yaml:"complete,omitempty"`

	// Data contains expected result values. Subset match on objects -
	// only specified fields are validated; lists match element-wise.
	Data map[string]interface{} `yaml:"data,omitempty"`

	// Missing lists response paths that must appear in the missing set.
	Missing []string `yaml:"missing,omitempty"`
}

// Assertion validates the final store image.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record": record exists and its fields subset-match
	// - "contains": record exists
	// - "absent": record does not exist
	// - "record_count": store holds exactly N records
	Type string `yaml:"type"`

	// Identity is the record key (all types except record_count).
	Identity string `yaml:"identity,omitempty"`

	// Fields contains expected stored values (used by record).
	// Subset match - only specified storage keys are validated.
	// Reference values are written as {"__ref": "Type:id"}.
	Fields map[string]interface{} `yaml:"fields,omitempty"`

	// Count is the expected record count (used by record_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord      = "record"
	AssertContains    = "contains"
	AssertAbsent      = "absent"
	AssertRecordCount = "record_count"
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

	for i, step := range s.Steps {
		set := 0
		if step.Write != nil {
			set++
			if step.Write.Shape == "" {
				return fmt.Errorf("steps[%d].write: shape is required", i)
			}
			if step.Write.Payload == nil {
				return fmt.Errorf("steps[%d].write: payload is required (use empty map for no data)", i)
			}
		}
		if step.Read != nil {
			set++
			if step.Read.Shape == "" {
				return fmt.Errorf("steps[%d].read: shape is required", i)
			}
		}
		if step.Reset {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of write, read, reset is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
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
	case AssertRecord:
		if a.Identity == "" {
			return fmt.Errorf("assertions[%d]: identity is required for record", index)
		}
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields is required for record", index)
		}
	case AssertContains, AssertAbsent:
		if a.Identity == "" {
			return fmt.Errorf("assertions[%d]: identity is required for %s", index, a.Type)
		}
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
