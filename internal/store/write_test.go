package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

func TestCommitExtrinsic_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestBlock(t, s, 1)

	rec := storeRecord(1, 0, 1, 42)
	require.NoError(t, s.CommitExtrinsic(ctx, rec))

	cells, err := s.LoadCells(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[state.Cell]uint32{state.CurrentValue: 42}, cells)

	recs, err := s.Extrinsics(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec, recs[0])
}

func TestCommitExtrinsic_ClearsCell(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestBlock(t, s, 1)
	require.NoError(t, s.CommitExtrinsic(ctx, storeRecord(1, 0, 1, 7)))

	origin := ir.Signed(alice)
	remove := ir.ExtrinsicRecord{
		ID:      ir.MustExtrinsicID(1, 1, origin, ir.RemoveValue{}),
		Block:   1,
		Index:   1,
		Seq:     3,
		Origin:  origin,
		Call:    ir.RemoveValue{},
		Weight:  110_000_000,
		Outcome: ir.OutcomeOK,
		Changes: []ir.CellChange{{Cell: "current_value"}},
	}
	require.NoError(t, s.CommitExtrinsic(ctx, remove))

	cells, err := s.LoadCells(ctx)
	require.NoError(t, err)
	assert.Empty(t, cells)

	recs, err := s.Extrinsics(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []ir.CellChange{{Cell: "current_value", Present: false}}, recs[1].Changes)
	assert.Empty(t, recs[1].Events)
}

func TestCommitExtrinsic_FailedOutcome(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestBlock(t, s, 1)

	origin := ir.Signed(alice)
	call := ir.NonTransactionalSum{Val: 1}
	rec := ir.ExtrinsicRecord{
		ID:      ir.MustExtrinsicID(1, 0, origin, call),
		Block:   1,
		Seq:     1,
		Origin:  origin,
		Call:    call,
		Weight:  235_000_000,
		Outcome: "OVERFLOW",
		Error:   "OVERFLOW: arithmetic overflow (call=non_transactional_sum)",
		Changes: []ir.CellChange{{Cell: "current_value", Value: 1, Present: true}},
	}
	require.NoError(t, s.CommitExtrinsic(ctx, rec))

	recs, err := s.Extrinsics(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "OVERFLOW", recs[0].Outcome)
	assert.Equal(t, rec.Error, recs[0].Error)
	assert.Equal(t, call, recs[0].Call)
}

// TestCommitExtrinsic_Atomic checks that a failing event insert leaves
// neither the extrinsic nor its cell writes behind.
func TestCommitExtrinsic_Atomic(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestBlock(t, s, 1)
	require.NoError(t, s.CommitExtrinsic(ctx, storeRecord(1, 0, 1, 1)))

	// Reuses event seq 2, which the first extrinsic already holds.
	bad := storeRecord(1, 1, 5, 99)
	bad.Events[0].Seq = 2
	require.Error(t, s.CommitExtrinsic(ctx, bad))

	cells, err := s.LoadCells(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[state.Cell]uint32{state.CurrentValue: 1}, cells)

	recs, err := s.Extrinsics(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCommitExtrinsic_UnknownBlock(t *testing.T) {
	s := createTestStore(t)
	err := s.CommitExtrinsic(context.Background(), storeRecord(9, 0, 1, 1))
	assert.Error(t, err, "foreign key on block_number")
}

func TestCommitExtrinsic_UnknownCell(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestBlock(t, s, 1)

	rec := storeRecord(1, 0, 1, 1)
	rec.Changes = []ir.CellChange{{Cell: "balance", Value: 1, Present: true}}
	err := s.CommitExtrinsic(ctx, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown cell "balance"`)
}

func TestBlocks_FinishAndHead(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	block, seq, err := s.Head(ctx)
	require.NoError(t, err)
	assert.Zero(t, block)
	assert.Zero(t, seq)

	beginTestBlock(t, s, 1)
	require.NoError(t, s.CommitExtrinsic(ctx, storeRecord(1, 0, 1, 5)))
	require.NoError(t, s.FinishBlock(ctx, 1, 126_496_000, 1))
	beginTestBlock(t, s, 2)
	require.NoError(t, s.FinishBlock(ctx, 2, 0, 0))

	block, seq, err = s.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), block)
	assert.Equal(t, int64(2), seq, "event seq is the highest")

	blocks, err := s.Blocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, ir.BlockRecord{
		Number:      1,
		TraceID:     "trace-test",
		WeightLimit: 1_000_000,
		WeightUsed:  126_496_000,
		Extrinsics:  1,
	}, blocks[0])

	b, ok, err := s.Block(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, b.Extrinsics)

	_, ok, err = s.Block(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, s.FinishBlock(ctx, 3, 0, 0))
	assert.Error(t, s.BeginBlock(ctx, ir.BlockRecord{Number: 2, TraceID: "dup"}), "duplicate block number")
}

func TestWeights_Saturated(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.BeginBlock(ctx, ir.BlockRecord{Number: 1, TraceID: "t", WeightLimit: math.MaxUint64}))

	rec := storeRecord(1, 0, 1, 1)
	rec.Weight = math.MaxUint64
	require.NoError(t, s.CommitExtrinsic(ctx, rec))

	b, _, err := s.Block(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), b.WeightLimit)

	recs, err := s.Extrinsics(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), recs[0].Weight)
}
