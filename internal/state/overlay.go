package state

import (
	"sort"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
)

// Overlay buffers writes over a committed Reader. Reads see the buffered
// writes first. Nothing reaches the base until the runtime commits Changes.
type Overlay struct {
	base    Reader
	pending map[Cell]pendingWrite
}

type pendingWrite struct {
	value   uint32
	present bool
}

// NewOverlay returns an empty overlay on top of base.
func NewOverlay(base Reader) *Overlay {
	return &Overlay{
		base:    base,
		pending: make(map[Cell]pendingWrite),
	}
}

// Get returns the buffered value of cell, or the committed one if cell
// was not written.
func (o *Overlay) Get(cell Cell) (uint32, bool) {
	if w, ok := o.pending[cell]; ok {
		return w.value, w.present
	}
	return o.base.Get(cell)
}

// Put buffers a write of v.
func (o *Overlay) Put(cell Cell, v uint32) {
	o.pending[cell] = pendingWrite{value: v, present: true}
}

// Take returns the current value of cell and buffers its removal, even
// when cell was already absent.
func (o *Overlay) Take(cell Cell) (uint32, bool) {
	v, ok := o.Get(cell)
	o.pending[cell] = pendingWrite{}
	return v, ok
}

// Changes returns the buffered writes sorted by cell name. A cell that was
// written back to its committed value still appears; the log records writes,
// not diffs.
func (o *Overlay) Changes() []ir.CellChange {
	out := make([]ir.CellChange, 0, len(o.pending))
	for c, w := range o.pending {
		out = append(out, ir.CellChange{Cell: string(c), Value: w.value, Present: w.present})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out
}

// Dirty reports whether any write is buffered.
func (o *Overlay) Dirty() bool {
	return len(o.pending) > 0
}

// Discard drops every buffered write.
func (o *Overlay) Discard() {
	clear(o.pending)
}
