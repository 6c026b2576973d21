package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
)

// TraceJSON renders a result as canonical JSON: the scenario name, one step
// per call and the final cells. Block trace ids and clock stamps are left
// out; both are fixed by the runtime, not by the pallet.
func TraceJSON(scenarioName string, result *Result) ([]byte, error) {
	steps := make([]any, len(result.Trace))
	for i, entry := range result.Trace {
		changes := make([]any, len(entry.Changes))
		for j, c := range entry.Changes {
			changes[j] = map[string]any{
				"cell":    c.Cell,
				"present": c.Present,
				"value":   c.Value,
			}
		}
		evs := make([]any, len(entry.Events))
		for j, ev := range entry.Events {
			evs[j] = map[string]any{
				"kind":    ev.Kind,
				"payload": ev.Payload,
			}
		}
		steps[i] = map[string]any{
			"block":   entry.Block,
			"call":    entry.Call,
			"args":    entry.Args,
			"caller":  entry.Caller,
			"outcome": entry.Outcome,
			"weight":  entry.Weight,
			"changes": changes,
			"events":  evs,
		}
	}

	final := make(map[string]any, len(result.Final))
	for cell, v := range result.Final {
		final[cell] = v
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"steps":    steps,
		"final":    final,
	})
}

// RunWithGolden runs a scenario and compares its trace with
// testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// A returned error means the scenario could not run; a trace mismatch fails
// t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := TraceJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
