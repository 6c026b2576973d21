package harness

import (
	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
)

// TraceEntry is the observable result of one scenario call.
type TraceEntry struct {
	Block   uint64          `json:"block"`
	Call    string          `json:"call"`
	Args    map[string]any  `json:"args"`
	Caller  string          `json:"caller"` // Dev account name, hex id, "none" or "root"
	Outcome string          `json:"outcome"`
	Weight  uint64          `json:"weight"`
	Changes []ir.CellChange `json:"changes"`
	Events  []EventEntry    `json:"events"`
}

// EventEntry is an emitted event in its encoded form.
type EventEntry struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expected outcome and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one entry per call, in order.
	Trace []TraceEntry `json:"trace"`

	// Errors lists every mismatch. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final holds the present cells after the last call.
	Final map[string]uint32 `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
		Final:  map[string]uint32{},
	}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Events returns every event of the run in emission order.
func (r *Result) Events() []EventEntry {
	var out []EventEntry
	for _, entry := range r.Trace {
		out = append(out, entry.Events...)
	}
	return out
}
