package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
)

var alice = ir.DevAccount("alice")

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTestBlock records block number with a fixed trace id.
func beginTestBlock(t *testing.T, s *Store, number uint64) {
	t.Helper()
	require.NoError(t, s.BeginBlock(context.Background(), ir.BlockRecord{
		Number:      number,
		TraceID:     "trace-test",
		WeightLimit: 1_000_000,
	}))
}

// storeRecord builds a successful store_value record.
func storeRecord(block uint64, index uint32, seq int64, v uint32) ir.ExtrinsicRecord {
	origin := ir.Signed(alice)
	call := ir.StoreValue{Value: v}
	return ir.ExtrinsicRecord{
		ID:      ir.MustExtrinsicID(block, index, origin, call),
		Block:   block,
		Index:   index,
		Seq:     seq,
		Origin:  origin,
		Call:    call,
		Weight:  126_496_000,
		Outcome: ir.OutcomeOK,
		Changes: []ir.CellChange{{Cell: "current_value", Value: v, Present: true}},
		Events: []ir.EventRecord{
			{Seq: seq + 1, Index: 0, Event: ir.ValueStored{Value: v, Who: alice}},
		},
	}
}
