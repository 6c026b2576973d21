package runtime

import "sync/atomic"

// Clock is a monotonic logical clock. Every committed extrinsic and event
// gets the next seq, so history order never depends on wall time.
//
// Clock is safe for concurrent use, though only the block builder advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock positioned at start. The executor resumes from
// the highest seq its backend has recorded.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued seq.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Rewind moves the clock back to seq. The block builder uses it to hand back
// seqs stamped on a record that was never committed.
func (c *Clock) Rewind(seq int64) {
	c.seq.Store(seq)
}
