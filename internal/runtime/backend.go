package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

// Backend persists what the executor commits.
//
// CommitExtrinsic must be atomic: the extrinsic record, its cell changes and
// its events are either all durable or none are. Implemented by
// MemoryBackend and store.Store.
type Backend interface {
	// LoadCells returns the committed cells.
	LoadCells(ctx context.Context) (map[state.Cell]uint32, error)

	// Head returns the number of the last block and the highest seq
	// recorded, both 0 for an empty history.
	Head(ctx context.Context) (block uint64, seq int64, err error)

	// BeginBlock records a new block before any of its extrinsics.
	BeginBlock(ctx context.Context, b ir.BlockRecord) error

	// CommitExtrinsic records one applied extrinsic and applies its
	// change set to the committed cells.
	CommitExtrinsic(ctx context.Context, rec ir.ExtrinsicRecord) error

	// FinishBlock records the weight used and extrinsic count of a block.
	FinishBlock(ctx context.Context, number uint64, weightUsed uint64, extrinsics int) error
}

// History reads recorded blocks back, oldest first.
type History interface {
	Blocks(ctx context.Context) ([]ir.BlockRecord, error)
	Extrinsics(ctx context.Context, block uint64) ([]ir.ExtrinsicRecord, error)
}

// MemoryBackend keeps everything in memory. Safe for concurrent use.
type MemoryBackend struct {
	mu         sync.Mutex
	cells      *state.Memory
	blocks     []ir.BlockRecord
	extrinsics map[uint64][]ir.ExtrinsicRecord
	seq        int64
}

// NewMemoryBackend returns a backend whose committed cells start at genesis.
func NewMemoryBackend(genesis map[state.Cell]uint32) *MemoryBackend {
	return &MemoryBackend{
		cells:      state.NewMemoryFrom(genesis),
		extrinsics: make(map[uint64][]ir.ExtrinsicRecord),
	}
}

// LoadCells implements Backend.
func (m *MemoryBackend) LoadCells(ctx context.Context) (map[state.Cell]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells.Snapshot(), nil
}

// Head implements Backend.
func (m *MemoryBackend) Head(ctx context.Context) (uint64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.blocks) == 0 {
		return 0, m.seq, nil
	}
	return m.blocks[len(m.blocks)-1].Number, m.seq, nil
}

// BeginBlock implements Backend.
func (m *MemoryBackend) BeginBlock(ctx context.Context, b ir.BlockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.blocks); n > 0 && b.Number <= m.blocks[n-1].Number {
		return fmt.Errorf("begin block %d: not after block %d", b.Number, m.blocks[n-1].Number)
	}
	m.blocks = append(m.blocks, b)
	return nil
}

// CommitExtrinsic implements Backend.
func (m *MemoryBackend) CommitExtrinsic(ctx context.Context, rec ir.ExtrinsicRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blockIndex(rec.Block); !ok {
		return fmt.Errorf("commit extrinsic %s: unknown block %d", rec.ID, rec.Block)
	}
	if err := m.cells.Apply(rec.Changes); err != nil {
		return fmt.Errorf("commit extrinsic %s: %w", rec.ID, err)
	}
	m.extrinsics[rec.Block] = append(m.extrinsics[rec.Block], cloneRecord(rec))
	m.seq = max(m.seq, rec.Seq)
	for _, ev := range rec.Events {
		m.seq = max(m.seq, ev.Seq)
	}
	return nil
}

// FinishBlock implements Backend.
func (m *MemoryBackend) FinishBlock(ctx context.Context, number uint64, weightUsed uint64, extrinsics int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.blockIndex(number)
	if !ok {
		return fmt.Errorf("finish block %d: unknown block", number)
	}
	m.blocks[i].WeightUsed = weightUsed
	m.blocks[i].Extrinsics = extrinsics
	return nil
}

// Blocks implements History.
func (m *MemoryBackend) Blocks(ctx context.Context) ([]ir.BlockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ir.BlockRecord, len(m.blocks))
	copy(out, m.blocks)
	return out, nil
}

// Extrinsics implements History.
func (m *MemoryBackend) Extrinsics(ctx context.Context, block uint64) ([]ir.ExtrinsicRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.extrinsics[block]
	out := make([]ir.ExtrinsicRecord, len(recs))
	for i, r := range recs {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func (m *MemoryBackend) blockIndex(number uint64) (int, bool) {
	for i, b := range m.blocks {
		if b.Number == number {
			return i, true
		}
	}
	return 0, false
}

func cloneRecord(rec ir.ExtrinsicRecord) ir.ExtrinsicRecord {
	rec.Changes = append([]ir.CellChange(nil), rec.Changes...)
	rec.Events = append([]ir.EventRecord(nil), rec.Events...)
	return rec
}
