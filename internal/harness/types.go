package harness

import "github.com/roach88/veeprom/internal/flash"

// TraceEvent is the record of one executed step.
type TraceEvent struct {
	Step int    `json:"step"`
	Op   string `json:"op"`
	// Args describes the step, e.g. "0x0000 aabb" for a write.
	Args string `json:"args,omitempty"`
	// Code is the eeprom error code the step returned.
	Code string `json:"code"`
	// Output is the hex read buffer or the recovery action.
	Output string        `json:"output,omitempty"`
	Flash  []flash.Event `json:"flash,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step matched its expectations.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Steps is the number of flash steps the scenario consumed.
	Steps int `json:"steps"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
