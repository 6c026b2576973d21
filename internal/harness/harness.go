package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/runtime"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/weights"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	info   weights.Info
	logger *slog.Logger
}

// WithWeights prices calls with info instead of the default table.
func WithWeights(info weights.Info) Option {
	return func(c *config) {
		c.info = info
	}
}

// WithLogger sets the runtime logger. Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Run executes a scenario and returns its result.
//
// Each run starts from fresh memory state seeded with the scenario's
// genesis. A returned error means the run itself failed; mismatched
// expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		info:   weights.DefaultTable(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	genesis := make(map[state.Cell]uint32, len(scenario.Genesis))
	for name, v := range scenario.Genesis {
		cell, err := state.ParseCell(name)
		if err != nil {
			return nil, fmt.Errorf("genesis: %w", err)
		}
		genesis[cell] = v
	}

	ids := make([]string, len(scenario.Calls))
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-block-%d", scenario.Name, i+1)
	}
	execOpts := []runtime.Option{
		runtime.WithTraceIDGenerator(runtime.NewFixedGenerator(ids...)),
		runtime.WithLogger(cfg.logger),
	}
	if scenario.BlockWeightLimit > 0 {
		execOpts = append(execOpts, runtime.WithBlockWeightLimit(weights.Weight(scenario.BlockWeightLimit)))
	}

	ctx := context.Background()
	exec, err := runtime.New(ctx, runtime.NewMemoryBackend(genesis), cfg.info, execOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start runtime: %w", err)
	}
	defer exec.Close()

	result := NewResult()
	for i, step := range scenario.Calls {
		entry, err := runStep(ctx, exec, cfg.info, step)
		if err != nil {
			return nil, fmt.Errorf("calls[%d] %s: %w", i, step.Call, err)
		}
		result.Trace = append(result.Trace, entry)

		if step.Expect != "" && entry.Outcome != step.Expect {
			result.AddError(fmt.Sprintf("calls[%d] %s: expected outcome %s, got %s",
				i, step.Call, step.Expect, entry.Outcome))
		}
	}

	for cell, v := range exec.Cells() {
		result.Final[string(cell)] = v
	}

	for i, assertion := range scenario.Assertions {
		if err := evaluateAssertion(result, assertion); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return result, nil
}

// runStep submits one call and builds it into its own block.
func runStep(ctx context.Context, exec *runtime.Executor, info weights.Info, step CallStep) (TraceEntry, error) {
	origin, call, err := step.Resolve()
	if err != nil {
		return TraceEntry{}, err
	}
	name, args, err := ir.EncodeCall(call)
	if err != nil {
		return TraceEntry{}, err
	}
	if err := exec.Submit(origin, call); err != nil {
		return TraceEntry{}, err
	}

	res, err := exec.BuildBlock(ctx)
	if err != nil && !runtime.IsHalted(err) {
		return TraceEntry{}, err
	}

	entry := TraceEntry{
		Block:   res.Block.Number,
		Call:    name,
		Args:    args,
		Caller:  step.Label(),
		Changes: []ir.CellChange{},
		Events:  []EventEntry{},
	}

	switch {
	case len(res.Rejected) == 1:
		entry.Outcome = runtime.OutcomeExhaustsResources
		entry.Weight = uint64(info.Cost(call))
	case len(res.Applied) == 1:
		rec := res.Applied[0]
		entry.Outcome = rec.Outcome
		entry.Weight = rec.Weight
		entry.Changes = append(entry.Changes, rec.Changes...)
		for _, ev := range rec.Events {
			kind, payload, err := ir.EncodeEvent(ev.Event)
			if err != nil {
				return TraceEntry{}, err
			}
			entry.Events = append(entry.Events, EventEntry{Kind: kind, Payload: payload})
		}
	default:
		return TraceEntry{}, fmt.Errorf("block %d applied %d and rejected %d extrinsics, want exactly one",
			res.Block.Number, len(res.Applied), len(res.Rejected))
	}
	return entry, nil
}
