package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/events"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/pallet"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/weights"
)

// OutcomeUnrecoverable is the outcome recorded for an aborted call.
const OutcomeUnrecoverable = string(pallet.ErrCodeUnrecoverable)

// Executor builds blocks from its pool and commits them through a Backend.
//
// Thread-safety model:
//   - Submit: safe from any goroutine
//   - BuildBlock: serialized internally; one block at a time
//   - Cells: safe from any goroutine, reads committed state only
type Executor struct {
	backend Backend
	info    weights.Info
	pool    *Pool
	clock   *Clock
	traces  TraceIDGenerator
	limit   weights.Weight
	logger  *slog.Logger

	mu        sync.Mutex // held by BuildBlock
	cellsMu   sync.RWMutex
	cells     *state.Memory
	lastBlock uint64
}

// Option configures an Executor.
type Option func(*Executor)

// WithBlockWeightLimit sets the declared weight budget of every block.
// Default: DefaultBlockWeightLimit.
func WithBlockWeightLimit(w weights.Weight) Option {
	return func(e *Executor) {
		e.limit = w
	}
}

// WithTraceIDGenerator sets the block trace id source. Default: UUIDv7Generator.
func WithTraceIDGenerator(g TraceIDGenerator) Option {
	return func(e *Executor) {
		e.traces = g
	}
}

// WithLogger sets the executor's logger. Default: slog.Default().
// A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New loads the committed cells and head of backend and returns an executor
// that continues from there. info prices every call before admission.
func New(ctx context.Context, backend Backend, info weights.Info, opts ...Option) (*Executor, error) {
	cells, err := backend.LoadCells(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cells: %w", err)
	}
	block, seq, err := backend.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("load head: %w", err)
	}

	e := &Executor{
		backend:   backend,
		info:      info,
		pool:      NewPool(),
		clock:     NewClockAt(seq),
		traces:    UUIDv7Generator{},
		limit:     DefaultBlockWeightLimit,
		logger:    slog.Default(),
		cells:     state.NewMemoryFrom(cells),
		lastBlock: block,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Submit queues a call for the next block.
func (e *Executor) Submit(origin ir.Origin, call ir.Call) error {
	if call == nil {
		return fmt.Errorf("submit: nil call")
	}
	if !e.pool.Submit(Extrinsic{Origin: origin, Call: call}) {
		return ErrPoolClosed
	}
	e.logger.Debug("extrinsic submitted",
		"call", call.Name(),
		"origin", origin.String(),
		"pending", e.pool.Len(),
	)
	return nil
}

// Pending returns the number of extrinsics waiting in the pool.
func (e *Executor) Pending() int {
	return e.pool.Len()
}

// Close stops accepting submissions. Pending extrinsics stay buildable.
func (e *Executor) Close() {
	e.pool.Close()
}

// Cells returns a copy of the committed cells.
func (e *Executor) Cells() map[state.Cell]uint32 {
	e.cellsMu.RLock()
	defer e.cellsMu.RUnlock()
	return e.cells.Snapshot()
}

// Clock returns the executor's logical clock.
func (e *Executor) Clock() *Clock {
	return e.clock
}

// Rejected is a call dropped from the pool because its declared weight
// exceeds the block limit.
type Rejected struct {
	Extrinsic Extrinsic
	Err       error
}

// BlockResult summarises a built block.
type BlockResult struct {
	Block    ir.BlockRecord
	Applied  []ir.ExtrinsicRecord
	Rejected []Rejected
	Deferred int
}

// BuildBlock builds one block from the pool.
//
// Calls are taken in pool order. Each call's declared weight is checked
// against the block meter: calls that fit are applied and committed one by
// one, calls that do not fit are put back for the next block, and calls
// larger than an empty block are rejected.
//
// On an unrecoverable abort the aborted extrinsic is recorded, the block is
// finished, and BuildBlock returns the result together with a *HaltedError.
// Extrinsics not yet taken stay in the pool.
//
// If the backend fails to commit an extrinsic, the block is finished with the
// extrinsics committed before it and BuildBlock returns that partial result
// with the error. The failed extrinsic goes back to the pool.
func (e *Executor) BuildBlock(ctx context.Context) (*BlockResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	number := e.lastBlock + 1
	block := ir.BlockRecord{
		Number:      number,
		TraceID:     e.traces.Generate(),
		WeightLimit: uint64(e.limit),
	}
	if err := e.backend.BeginBlock(ctx, block); err != nil {
		return nil, fmt.Errorf("begin block %d: %w", number, err)
	}
	e.lastBlock = number

	logger := e.logger.With("block", number, "trace_id", block.TraceID)
	logger.Info("building block", "pending", e.pool.Len(), "weight_limit", uint64(e.limit))

	meter := NewBlockWeightMeter(e.limit)
	result := &BlockResult{}
	var deferred []Extrinsic
	var halted error

	for halted == nil {
		if err := ctx.Err(); err != nil {
			halted = err
			break
		}
		xt, ok := e.pool.TryTake()
		if !ok {
			break
		}

		w := e.info.Cost(xt.Call)
		admitted, err := meter.Admit(xt.Call.Name(), w)
		if err != nil {
			logger.Warn("extrinsic rejected", "call", xt.Call.Name(), "weight", uint64(w), "error", err)
			result.Rejected = append(result.Rejected, Rejected{Extrinsic: xt, Err: err})
			continue
		}
		if !admitted {
			logger.Debug("extrinsic deferred", "call", xt.Call.Name(), "weight", uint64(w), "remaining", uint64(meter.Remaining()))
			deferred = append(deferred, xt)
			continue
		}

		index := uint32(len(result.Applied))
		res, err := e.apply(ctx, number, index, xt, w)
		if err != nil {
			// The extrinsic was not committed; return it to the pool and
			// close the block with what was.
			deferred = append(deferred, xt)
			e.pool.Requeue(deferred)
			result.Deferred = len(deferred)
			if ferr := e.finishBlock(ctx, &block, meter.Used()-w, result); ferr != nil {
				return result, fmt.Errorf("block %d: %w (%w)", number, err, ferr)
			}
			logger.Error("block closed early", "call", xt.Call.Name(), "index", index, "error", err)
			return result, fmt.Errorf("block %d: %w", number, err)
		}
		rec := res.record
		result.Applied = append(result.Applied, rec)

		logger.Info("extrinsic applied",
			"call", xt.Call.Name(),
			"index", index,
			"weight", uint64(w),
			"outcome", rec.Outcome,
			"events", len(rec.Events),
		)

		if pallet.IsUnrecoverable(res.dispatchErr) {
			halted = &HaltedError{Block: number, Index: index, ExtrinsicID: rec.ID, Err: res.dispatchErr}
			logger.Error("block halted", "call", xt.Call.Name(), "index", index, "error", res.dispatchErr)
		}
	}

	e.pool.Requeue(deferred)
	result.Deferred = len(deferred)

	if err := e.finishBlock(ctx, &block, meter.Used(), result); err != nil {
		return nil, err
	}

	logger.Info("block built",
		"extrinsics", block.Extrinsics,
		"weight_used", block.WeightUsed,
		"deferred", result.Deferred,
		"rejected", len(result.Rejected),
	)
	return result, halted
}

// finishBlock records the weight and extrinsic count of the open block.
// A cancelled build still closes the block it opened.
func (e *Executor) finishBlock(ctx context.Context, block *ir.BlockRecord, used weights.Weight, result *BlockResult) error {
	block.WeightUsed = uint64(used)
	block.Extrinsics = len(result.Applied)
	if err := e.backend.FinishBlock(context.WithoutCancel(ctx), block.Number, block.WeightUsed, block.Extrinsics); err != nil {
		return fmt.Errorf("finish block %d: %w", block.Number, err)
	}
	result.Block = *block
	return nil
}

// applied is one committed extrinsic and the pallet's verdict on it.
type applied struct {
	record      ir.ExtrinsicRecord
	dispatchErr error
}

// apply executes one extrinsic and commits it. A returned error is an
// infrastructure failure, in which case nothing was committed and the seqs
// stamped on the record are handed back to the clock.
func (e *Executor) apply(ctx context.Context, number uint64, index uint32, xt Extrinsic, w weights.Weight) (applied, error) {
	id, err := ir.ExtrinsicID(number, index, xt.Origin, xt.Call)
	if err != nil {
		return applied{}, err
	}

	e.cellsMu.RLock()
	overlay := state.NewOverlay(e.cells)
	log := events.NewLog()
	dispatchErr := pallet.New(overlay, log, pallet.WithLogger(e.logger)).Dispatch(xt.Origin, xt.Call)
	e.cellsMu.RUnlock()

	mark := e.clock.Current()
	rec, err := e.record(id, number, index, xt, w, dispatchErr, overlay, log)
	if err != nil {
		e.clock.Rewind(mark)
		return applied{}, err
	}

	if err := e.backend.CommitExtrinsic(ctx, rec); err != nil {
		e.clock.Rewind(mark)
		return applied{}, fmt.Errorf("commit %s: %w", xt.Call.Name(), err)
	}

	e.cellsMu.Lock()
	applyErr := e.cells.Apply(rec.Changes)
	e.cellsMu.Unlock()
	if applyErr != nil {
		return applied{}, applyErr
	}
	return applied{record: rec, dispatchErr: dispatchErr}, nil
}

// record builds the extrinsic record and stamps it from the clock.
// Unrecoverable aborts keep neither writes nor events.
func (e *Executor) record(id string, number uint64, index uint32, xt Extrinsic, w weights.Weight, dispatchErr error, overlay *state.Overlay, log *events.Log) (ir.ExtrinsicRecord, error) {
	rec := ir.ExtrinsicRecord{
		ID:     id,
		Block:  number,
		Index:  index,
		Origin: xt.Origin,
		Call:   xt.Call,
		Weight: uint64(w),
	}

	outcome, keep, err := outcomeOf(dispatchErr)
	if err != nil {
		return ir.ExtrinsicRecord{}, fmt.Errorf("dispatch %s: %w", xt.Call.Name(), err)
	}
	rec.Outcome = outcome
	if dispatchErr != nil {
		rec.Error = dispatchErr.Error()
	}
	var evs []ir.Event
	if keep {
		evs = log.Events()
	} else {
		overlay.Discard()
	}

	rec.Changes = overlay.Changes()
	rec.Seq = e.clock.Next()
	rec.Events = make([]ir.EventRecord, len(evs))
	for i, ev := range evs {
		rec.Events[i] = ir.EventRecord{Seq: e.clock.Next(), Index: i, Event: ev}
	}
	return rec, nil
}

// outcomeOf maps the pallet's verdict to a recorded outcome and whether the
// call's writes and events are kept. Foreign errors are returned as is.
func outcomeOf(dispatchErr error) (outcome string, keep bool, err error) {
	switch {
	case dispatchErr == nil:
		return ir.OutcomeOK, true, nil
	case pallet.IsUnrecoverable(dispatchErr):
		return OutcomeUnrecoverable, false, nil
	case pallet.IsRecoverable(dispatchErr):
		return string(pallet.CodeOf(dispatchErr)), true, nil
	default:
		return "", false, dispatchErr
	}
}
