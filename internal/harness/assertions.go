package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

// AssertionError is returned when an assertion fails. It carries the trace
// so the failure can be read without rerunning the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEntry
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\ntrace:\n")
	for i, entry := range e.Trace {
		kinds := make([]string, len(entry.Events))
		for j, ev := range entry.Events {
			kinds[j] = ev.Kind
		}
		fmt.Fprintf(&buf, "  [%d] block %d %s %v by %s -> %s %v\n",
			i+1, entry.Block, entry.Call, entry.Args, entry.Caller, entry.Outcome, kinds)
	}
	return buf.String()
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(result, a)
	case AssertEventContains:
		return assertEventContains(result, a)
	case AssertEventOrder:
		return assertEventOrder(result, a)
	case AssertEventCount:
		return assertEventCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalState checks listed cells only. A nil value requires the cell
// to be absent.
func assertFinalState(result *Result, a Assertion) error {
	var diffs []string
	for _, cell := range state.AllCells {
		want, listed := a.Cells[string(cell)]
		if !listed {
			continue
		}
		got, present := result.Final[string(cell)]
		switch {
		case want == nil && present:
			diffs = append(diffs, fmt.Sprintf("%s: want absent, got %d", cell, got))
		case want != nil && !present:
			diffs = append(diffs, fmt.Sprintf("%s: want %d, got absent", cell, *want))
		case want != nil && got != *want:
			diffs = append(diffs, fmt.Sprintf("%s: want %d, got %d", cell, *want, got))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("cells %s", formatCells(a.Cells)),
		Actual:   strings.Join(diffs, "; "),
		Trace:    result.Trace,
	}
}

// assertEventContains passes if any event of the kind carries every listed
// payload field.
func assertEventContains(result *Result, a Assertion) error {
	for _, ev := range result.Events() {
		if ev.Kind == a.Kind && matchPayload(ev.Payload, a.Payload) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event %s with payload %v", a.Kind, a.Payload),
		Actual:   "not found",
		Trace:    result.Trace,
	}
}

// assertEventOrder checks that the kinds occur in order. Other events may
// appear in between.
func assertEventOrder(result *Result, a Assertion) error {
	next := 0
	var seen []string
	for _, ev := range result.Events() {
		seen = append(seen, ev.Kind)
		if next < len(a.Kinds) && ev.Kind == a.Kinds[next] {
			next++
		}
	}
	if next == len(a.Kinds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: fmt.Sprintf("kinds in order %v", a.Kinds),
		Actual:   fmt.Sprintf("matched %d of %d in %v", next, len(a.Kinds), seen),
		Trace:    result.Trace,
	}
}

func assertEventCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Events() {
		if ev.Kind == a.Kind {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%d %s events", a.Count, a.Kind),
		Actual:   fmt.Sprintf("%d %s events", count, a.Kind),
		Trace:    result.Trace,
	}
}

// matchPayload compares by printed value, so YAML ints match u32 payload
// fields.
func matchPayload(actual, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func formatCells(cells map[string]*uint32) string {
	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		if v := cells[name]; v != nil {
			parts[i] = fmt.Sprintf("%s=%d", name, *v)
		} else {
			parts[i] = name + "=<absent>"
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
