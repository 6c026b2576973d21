// Package state holds the pallet's storage cells and the overlay that buffers
// one call's writes before the runtime commits them.
//
// The pallet owns exactly two cells. Nothing outside the pallet and the
// runtime's commit path writes them.
package state

import (
	"fmt"
	"sort"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
)

// Cell names a persistent storage slot.
type Cell string

const (
	// CurrentValue is the optional u32 written by store and add calls.
	CurrentValue Cell = "current_value"
	// RunningSum is the optional u32 written only by the sum calls.
	RunningSum Cell = "running_sum"
)

// AllCells lists every cell in a fixed order.
var AllCells = []Cell{CurrentValue, RunningSum}

// ParseCell validates a cell name.
func ParseCell(name string) (Cell, error) {
	for _, c := range AllCells {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown cell %q", name)
}

// Reader reads cells. Absence is reported, never defaulted.
type Reader interface {
	Get(cell Cell) (uint32, bool)
}

// Cells is the read/write accessor the pallet is given.
type Cells interface {
	Reader
	// Put replaces the cell value.
	Put(cell Cell, v uint32)
	// Take reads the value and clears the cell.
	Take(cell Cell) (uint32, bool)
}

// Memory is a plain in-memory cell store. The zero value is not usable;
// call NewMemory.
type Memory struct {
	values map[Cell]uint32
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{values: make(map[Cell]uint32, len(AllCells))}
}

// NewMemoryFrom returns a store seeded with values.
func NewMemoryFrom(values map[Cell]uint32) *Memory {
	m := NewMemory()
	for c, v := range values {
		m.values[c] = v
	}
	return m
}

// Get implements Cells.
func (m *Memory) Get(cell Cell) (uint32, bool) {
	v, ok := m.values[cell]
	return v, ok
}

// Put implements Cells.
func (m *Memory) Put(cell Cell, v uint32) {
	m.values[cell] = v
}

// Take implements Cells.
func (m *Memory) Take(cell Cell) (uint32, bool) {
	v, ok := m.values[cell]
	delete(m.values, cell)
	return v, ok
}

// Snapshot returns a copy of all present cells.
func (m *Memory) Snapshot() map[Cell]uint32 {
	out := make(map[Cell]uint32, len(m.values))
	for c, v := range m.values {
		out[c] = v
	}
	return out
}

// Apply writes a committed change set.
func (m *Memory) Apply(changes []ir.CellChange) error {
	for _, ch := range changes {
		cell, err := ParseCell(ch.Cell)
		if err != nil {
			return fmt.Errorf("apply change: %w", err)
		}
		if ch.Present {
			m.values[cell] = ch.Value
		} else {
			delete(m.values, cell)
		}
	}
	return nil
}

// SnapshotChanges renders a snapshot as a sorted change set, one entry per
// present cell. Used to compare two stores.
func SnapshotChanges(snap map[Cell]uint32) []ir.CellChange {
	out := make([]ir.CellChange, 0, len(snap))
	for c, v := range snap {
		out = append(out, ir.CellChange{Cell: string(c), Value: v, Present: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out
}
