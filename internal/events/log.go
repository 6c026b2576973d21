// Package events is the pallet's notification emitter: an append-only log of
// the events one call execution deposits.
package events

import "github.com/apopiak/how-not-to-build-a-pallet/internal/ir"

// Emitter accepts events. Deposit never blocks and never fails; from the
// caller's side it is fire-and-forget.
type Emitter interface {
	Deposit(ev ir.Event)
}

// Log is an append-only, per-execution event log. Order is emission order.
// A Log belongs to one call execution and is not safe for concurrent use.
type Log struct {
	events []ir.Event
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Deposit appends ev. Nil events are ignored.
func (l *Log) Deposit(ev ir.Event) {
	if ev == nil {
		return
	}
	l.events = append(l.events, ev)
}

// Events returns a copy of the deposited events in emission order.
func (l *Log) Events() []ir.Event {
	out := make([]ir.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of deposited events.
func (l *Log) Len() int {
	return len(l.events)
}

// Last returns the most recent event, if any.
func (l *Log) Last() (ir.Event, bool) {
	if len(l.events) == 0 {
		return nil, false
	}
	return l.events[len(l.events)-1], true
}

// Discard is an Emitter that drops everything. Used where the caller only
// cares about state, such as weight calibration runs.
type Discard struct{}

// Deposit implements Emitter.
func (Discard) Deposit(ir.Event) {}
