package runtime

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/pallet"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/weights"
)

var alice = ir.Signed(ir.DevAccount("alice"))

// storeValueWeight is the default declared weight of store_value.
const storeValueWeight = 126_496_000

func newExecutor(t *testing.T, backend *MemoryBackend, opts ...Option) *Executor {
	t.Helper()
	opts = append([]Option{WithTraceIDGenerator(NewFixedGenerator("trace-1", "trace-2", "trace-3"))}, opts...)
	e, err := New(context.Background(), backend, weights.DefaultTable(), opts...)
	require.NoError(t, err)
	return e
}

// TestBuildBlock_AppliesInOrder checks the basic flow: submit, build,
// commit, with events and records in pool order.
func TestBuildBlock_AppliesInOrder(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(nil)
	e := newExecutor(t, backend)

	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 42}))
	require.NoError(t, e.Submit(alice, ir.IncrementOrFail{}))
	assert.Equal(t, 2, e.Pending())

	res, err := e.BuildBlock(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), res.Block.Number)
	assert.Equal(t, "trace-1", res.Block.TraceID)
	assert.Equal(t, 2, res.Block.Extrinsics)
	assert.Equal(t, uint64(storeValueWeight+135_000_000), res.Block.WeightUsed)
	require.Len(t, res.Applied, 2)

	first := res.Applied[0]
	assert.Equal(t, ir.OutcomeOK, first.Outcome)
	assert.Equal(t, uint32(0), first.Index)
	assert.Equal(t, ir.MustExtrinsicID(1, 0, alice, ir.StoreValue{Value: 42}), first.ID)
	assert.Equal(t, []ir.CellChange{{Cell: "current_value", Value: 42, Present: true}}, first.Changes)
	require.Len(t, first.Events, 1)
	assert.Equal(t, ir.ValueStored{Value: 42, Who: ir.DevAccount("alice")}, first.Events[0].Event)

	assert.Equal(t, map[state.Cell]uint32{state.CurrentValue: 43}, e.Cells())
	assert.Equal(t, 0, e.Pending())

	blocks, err := backend.Blocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, res.Block, blocks[0])
}

// TestBuildBlock_SeqIsMonotonic checks that extrinsics and events are
// stamped from one increasing clock across blocks.
func TestBuildBlock_SeqIsMonotonic(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t, NewMemoryBackend(nil))

	var seqs []int64
	for i := 0; i < 2; i++ {
		require.NoError(t, e.Submit(alice, ir.StoreValue{Value: uint32(i)}))
		require.NoError(t, e.Submit(alice, ir.TransactionalSum{Val: 1}))
		res, err := e.BuildBlock(ctx)
		require.NoError(t, err)
		for _, rec := range res.Applied {
			seqs = append(seqs, rec.Seq)
			for _, ev := range rec.Events {
				seqs = append(seqs, ev.Seq)
			}
		}
	}

	require.NotEmpty(t, seqs)
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
	assert.Equal(t, seqs[len(seqs)-1], e.Clock().Current())
}

// TestBuildBlock_DefersWhatDoesNotFit checks that calls over the remaining
// budget wait for the next block in their original order.
func TestBuildBlock_DefersWhatDoesNotFit(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t, NewMemoryBackend(nil), WithBlockWeightLimit(2*storeValueWeight+1))

	for v := uint32(1); v <= 3; v++ {
		require.NoError(t, e.Submit(alice, ir.StoreValue{Value: v}))
	}

	res, err := e.BuildBlock(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Applied, 2)
	assert.Equal(t, 1, res.Deferred)
	assert.Equal(t, 1, e.Pending())
	assert.Equal(t, uint32(2), e.Cells()[state.CurrentValue])

	res, err = e.BuildBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Block.Number)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, ir.StoreValue{Value: 3}, res.Applied[0].Call)
	assert.Equal(t, uint32(3), e.Cells()[state.CurrentValue])
}

// TestBuildBlock_RejectsOversizedCall checks that a call no block can hold
// is dropped, not deferred forever.
func TestBuildBlock_RejectsOversizedCall(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t, NewMemoryBackend(nil), WithBlockWeightLimit(1_000_000_000))

	require.NoError(t, e.Submit(alice, ir.RepeatHash{Times: 1_000_000, Bounded: true}))
	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 1}))

	res, err := e.BuildBlock(ctx)
	require.NoError(t, err)
	require.Len(t, res.Rejected, 1)
	assert.True(t, IsExhaustsResources(res.Rejected[0].Err))
	require.Len(t, res.Applied, 1)
	assert.Equal(t, 0, e.Pending())
}

// TestBuildBlock_UnboundedHashPassesMeter documents the hazard: the
// unbounded variant declares a constant weight and is admitted however
// many rounds it asks for.
func TestBuildBlock_UnboundedHashPassesMeter(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t, NewMemoryBackend(nil), WithBlockWeightLimit(1_000_000_000))

	require.NoError(t, e.Submit(alice, ir.RepeatHash{Times: 10_000, Bounded: false}))
	require.NoError(t, e.Submit(alice, ir.RepeatHash{Times: 10_000, Bounded: true}))

	res, err := e.BuildBlock(ctx)
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, ir.CallUnboundedRepeatHash, res.Applied[0].Call.Name())
	assert.Equal(t, uint64(10_000_000), res.Applied[0].Weight)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, ir.CallBoundedRepeatHash, res.Rejected[0].Extrinsic.Call.Name())
}

// TestBuildBlock_RecoverableFailureKeepsWrites shows the non-transactional
// hazard at block level: the failed call's first write is committed.
func TestBuildBlock_RecoverableFailureKeepsWrites(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(map[state.Cell]uint32{
		state.CurrentValue: math.MaxUint32,
		state.RunningSum:   5,
	})
	e := newExecutor(t, backend)

	require.NoError(t, e.Submit(alice, ir.NonTransactionalSum{Val: 1}))
	res, err := e.BuildBlock(ctx)
	require.NoError(t, err, "a recoverable failure does not fail the block")

	rec := res.Applied[0]
	assert.Equal(t, string(pallet.ErrCodeOverflow), rec.Outcome)
	assert.Contains(t, rec.Error, "OVERFLOW")
	assert.Equal(t, []ir.CellChange{{Cell: "current_value", Value: 1, Present: true}}, rec.Changes)
	assert.Empty(t, rec.Events)

	want := map[state.Cell]uint32{state.CurrentValue: 1, state.RunningSum: 5}
	assert.Equal(t, want, e.Cells())
	committed, err := backend.LoadCells(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, committed)
}

// TestBuildBlock_TransactionalFailureWritesNothing is the safe counterpart.
func TestBuildBlock_TransactionalFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	genesis := map[state.Cell]uint32{state.CurrentValue: math.MaxUint32}
	e := newExecutor(t, NewMemoryBackend(genesis))

	require.NoError(t, e.Submit(alice, ir.TransactionalSum{Val: 1}))
	res, err := e.BuildBlock(ctx)
	require.NoError(t, err)

	assert.Equal(t, string(pallet.ErrCodeOverflow), res.Applied[0].Outcome)
	assert.Empty(t, res.Applied[0].Changes)
	assert.Equal(t, genesis, e.Cells())
}

// TestBuildBlock_UnsignedIsRecorded checks that an unauthenticated call is
// charged and recorded but changes nothing.
func TestBuildBlock_UnsignedIsRecorded(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t, NewMemoryBackend(nil))

	require.NoError(t, e.Submit(ir.Unsigned(), ir.StoreValue{Value: 1}))
	res, err := e.BuildBlock(ctx)
	require.NoError(t, err)

	assert.Equal(t, string(pallet.ErrCodeUnauthenticated), res.Applied[0].Outcome)
	assert.Empty(t, res.Applied[0].Changes)
	assert.Empty(t, e.Cells())
	assert.Equal(t, uint64(storeValueWeight), res.Block.WeightUsed)
}

// TestBuildBlock_UnrecoverableHaltsBlock checks the abort path: the abort
// is recorded without effects, the block stops, and later calls wait.
func TestBuildBlock_UnrecoverableHaltsBlock(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(nil)
	e := newExecutor(t, backend)

	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 1}))
	require.NoError(t, e.Submit(alice, ir.RemoveValue{}))
	require.NoError(t, e.Submit(alice, ir.UnwrapUnsafeRead{}))
	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 9}))

	res, err := e.BuildBlock(ctx)
	require.Error(t, err)
	assert.True(t, IsHalted(err))
	assert.True(t, pallet.IsUnrecoverable(err))

	var halted *HaltedError
	require.True(t, errors.As(err, &halted))
	assert.Equal(t, uint64(1), halted.Block)
	assert.Equal(t, uint32(2), halted.Index)

	require.NotNil(t, res)
	require.Len(t, res.Applied, 3)
	aborted := res.Applied[2]
	assert.Equal(t, OutcomeUnrecoverable, aborted.Outcome)
	assert.Equal(t, halted.ExtrinsicID, aborted.ID)
	assert.Empty(t, aborted.Changes)
	assert.Empty(t, aborted.Events)
	assert.Equal(t, 3, res.Block.Extrinsics)

	assert.Empty(t, e.Cells())
	assert.Equal(t, 1, e.Pending(), "calls after the abort stay in the pool")

	recs, err := backend.Extrinsics(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	res, err = e.BuildBlock(ctx)
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, uint32(9), e.Cells()[state.CurrentValue])
}

// TestBuildBlock_Cancelled checks that a cancelled build closes an empty
// block and leaves the pool alone.
func TestBuildBlock_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newExecutor(t, NewMemoryBackend(nil))
	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 1}))

	res, err := e.BuildBlock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Applied)
	assert.Equal(t, 1, e.Pending())
}

// TestNew_ResumesFromBackend checks that a second executor continues the
// block numbers, clock and cells of the first.
func TestNew_ResumesFromBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(nil)

	first := newExecutor(t, backend)
	require.NoError(t, first.Submit(alice, ir.StoreValue{Value: 5}))
	_, err := first.BuildBlock(ctx)
	require.NoError(t, err)
	lastSeq := first.Clock().Current()

	second, err := New(ctx, backend, weights.DefaultTable(), WithTraceIDGenerator(NewFixedGenerator("trace-9")))
	require.NoError(t, err)
	assert.Equal(t, lastSeq, second.Clock().Current())
	assert.Equal(t, map[state.Cell]uint32{state.CurrentValue: 5}, second.Cells())

	require.NoError(t, second.Submit(alice, ir.IncrementOrFail{}))
	res, err := second.BuildBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Block.Number)
	assert.Greater(t, res.Applied[0].Seq, lastSeq)
}

// TestSubmit_Errors covers nil calls and closed pools.
func TestSubmit_Errors(t *testing.T) {
	e := newExecutor(t, NewMemoryBackend(nil))
	assert.Error(t, e.Submit(alice, nil))

	e.Close()
	assert.ErrorIs(t, e.Submit(alice, ir.RemoveValue{}), ErrPoolClosed)
}

// TestNew_NilLogger checks that a nil logger keeps the default one.
func TestNew_NilLogger(t *testing.T) {
	e := newExecutor(t, NewMemoryBackend(nil), WithLogger(nil))
	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 1}))

	res, err := e.BuildBlock(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Applied, 1)
}

// failingBackend fails every commit from the failAt-th on (1-based).
type failingBackend struct {
	*MemoryBackend
	failAt  int
	commits int
}

func (b *failingBackend) CommitExtrinsic(ctx context.Context, rec ir.ExtrinsicRecord) error {
	b.commits++
	if b.commits >= b.failAt {
		return errors.New("disk full")
	}
	return b.MemoryBackend.CommitExtrinsic(ctx, rec)
}

// TestBuildBlock_BackendFailure checks that a failed commit leaves the call
// in the pool and the cells untouched.
func TestBuildBlock_BackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemoryBackend: NewMemoryBackend(nil), failAt: 1}
	e, err := New(ctx, backend, weights.DefaultTable(), WithTraceIDGenerator(NewFixedGenerator("t")))
	require.NoError(t, err)

	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 1}))
	_, err = e.BuildBlock(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, e.Pending())
	assert.Empty(t, e.Cells())
	assert.Equal(t, int64(0), e.Clock().Current(), "no seq is spent on an uncommitted record")
}

// TestBuildBlock_BackendFailureClosesBlock checks that a commit failing
// mid-block still finishes the block with the extrinsics committed before it.
func TestBuildBlock_BackendFailureClosesBlock(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemoryBackend: NewMemoryBackend(nil), failAt: 2}
	e, err := New(ctx, backend, weights.DefaultTable(), WithTraceIDGenerator(NewFixedGenerator("t1", "t2")))
	require.NoError(t, err)

	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 1}))
	require.NoError(t, e.Submit(alice, ir.StoreValue{Value: 2}))

	res, err := e.BuildBlock(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, res)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, 1, res.Deferred)

	blocks, err := backend.Blocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 1, blocks[0].Extrinsics)
	assert.Equal(t, uint64(storeValueWeight), blocks[0].WeightUsed)
	assert.Equal(t, blocks[0], res.Block)

	// One extrinsic seq and one event seq were committed; the failed
	// record's seqs were handed back.
	assert.Equal(t, int64(2), e.Clock().Current())
	assert.Equal(t, map[state.Cell]uint32{state.CurrentValue: 1}, e.Cells())
	assert.Equal(t, 1, e.Pending())

	// The next block picks up the deferred call with fresh seqs.
	backend.failAt = math.MaxInt
	res, err = e.BuildBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Block.Number)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, int64(3), res.Applied[0].Seq)
	assert.Equal(t, map[state.Cell]uint32{state.CurrentValue: 2}, e.Cells())
}
