package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/veeprom/internal/eeprom"
)

// Scenario is a scripted run against a fresh in-memory flash device.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Geometry defaults to eeprom.DefaultConfig when omitted.
	Geometry *eeprom.Config `yaml:"geometry,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is one operation of a scenario.
type Step struct {
	Op   string `yaml:"op"`
	Addr uint32 `yaml:"addr,omitempty"`

	// Data is the hex payload of a write.
	Data string `yaml:"data,omitempty"`

	// Len is the number of bytes to read.
	Len int `yaml:"len,omitempty"`

	// Expect is the hex buffer of a read or the action name of an init.
	Expect string `yaml:"expect,omitempty"`

	// ExpectError is the eeprom error code the step must return.
	// Empty means "ok".
	ExpectError string `yaml:"expect_error,omitempty"`

	// Budget is the number of flash steps before a crash.
	Budget int `yaml:"budget,omitempty"`
}

// Step ops.
const (
	OpFormat = "format"
	OpInit   = "init"
	OpWrite  = "write"
	OpRead   = "read"
	OpCrash  = "crash"
	OpReboot = "reboot"
)

var knownCodes = map[string]bool{
	eeprom.CodeOK:            true,
	eeprom.CodeNoData:        true,
	eeprom.CodeFull:          true,
	eeprom.CodeBadAlignment:  true,
	eeprom.CodeFlash:         true,
	eeprom.CodeNotReady:      true,
	eeprom.CodeInvalidConfig: true,
	eeprom.CodeUnknown:       true,
}

var knownActions = map[string]bool{
	eeprom.ActionNone.String():      true,
	eeprom.ActionFormat.String():    true,
	eeprom.ActionPromote.String():   true,
	eeprom.ActionRecompact.String(): true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
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

// Config returns the scenario geometry, falling back to the default.
func (s *Scenario) Config() eeprom.Config {
	if s.Geometry == nil {
		return eeprom.DefaultConfig()
	}
	return *s.Geometry
}

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
	if err := s.Config().Validate(); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, st *Step) error {
	if st.ExpectError != "" && !knownCodes[st.ExpectError] {
		return fmt.Errorf("steps[%d]: unknown error code %q", i, st.ExpectError)
	}

	switch st.Op {
	case OpFormat, OpReboot:
	case OpInit:
		if st.Expect != "" && !knownActions[st.Expect] {
			return fmt.Errorf("steps[%d]: unknown recovery action %q", i, st.Expect)
		}
	case OpWrite:
		if st.Data == "" {
			return fmt.Errorf("steps[%d]: data is required for write", i)
		}
		if _, err := hex.DecodeString(st.Data); err != nil {
			return fmt.Errorf("steps[%d]: data: %w", i, err)
		}
	case OpRead:
		if st.Len <= 0 {
			return fmt.Errorf("steps[%d]: len must be positive for read", i)
		}
		if st.Expect != "" {
			b, err := hex.DecodeString(st.Expect)
			if err != nil {
				return fmt.Errorf("steps[%d]: expect: %w", i, err)
			}
			if len(b) != st.Len {
				return fmt.Errorf("steps[%d]: expect has %d bytes, len is %d", i, len(b), st.Len)
			}
		}
	case OpCrash:
		if st.Budget < 0 {
			return fmt.Errorf("steps[%d]: budget must be non-negative", i)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, st.Op)
	}
	return nil
}
