package harness

import "github.com/roach88/gqlcache/internal/store"

// StepEvent records one executed step for the trace.
type StepEvent struct {
	// Type is "write", "read", or "reset".
	Type string `json:"type"`

	// WriteToken and Seq identify a write pass (write steps only).
	WriteToken string `json:"write_token,omitempty"`
	Seq        int64  `json:"seq,omitempty"`

	// Changed lists identities the write touched (write steps only).
	Changed []string `json:"changed,omitempty"`

	// Complete reports the read outcome (read steps only).
	Complete *bool `json:"complete,omitempty"`

	// Missing lists unresolved response paths (read steps only).
	Missing []string `json:"missing,omitempty"`

	// Invalidated lists identities a reset dropped (reset steps only).
	Invalidated []string `json:"invalidated,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []StepEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// snapshot is the final store image, for golden comparison.
	snapshot store.Snapshot
}

// Snapshot returns the final store image after all steps ran.
func (r *Result) Snapshot() store.Snapshot {
	return r.snapshot
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
