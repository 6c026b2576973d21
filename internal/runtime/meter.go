package runtime

import "github.com/apopiak/how-not-to-build-a-pallet/internal/weights"

// DefaultBlockWeightLimit is two seconds of reference execution time.
const DefaultBlockWeightLimit weights.Weight = 2_000_000_000_000

// BlockWeightMeter tracks the declared weight admitted into one block.
//
// The meter only ever sees declared weights. A call whose real work exceeds
// its declaration (unbounded_repeat_hash) passes the meter unnoticed.
type BlockWeightMeter struct {
	limit weights.Weight
	used  weights.Weight
}

// NewBlockWeightMeter returns a meter with nothing consumed.
func NewBlockWeightMeter(limit weights.Weight) *BlockWeightMeter {
	return &BlockWeightMeter{limit: limit}
}

// Admit consumes w if it fits in the remaining budget.
//
// Returns *ExhaustsResourcesError if w exceeds the whole block limit, which
// no later block can fix. Returns ok=false without error if w only exceeds
// what is left in this block.
func (m *BlockWeightMeter) Admit(call string, w weights.Weight) (bool, error) {
	if w > m.limit {
		return false, &ExhaustsResourcesError{Call: call, Weight: w, Limit: m.limit}
	}
	if w > m.Remaining() {
		return false, nil
	}
	m.used = m.used.Add(w)
	return true, nil
}

// Used returns the admitted weight so far.
func (m *BlockWeightMeter) Used() weights.Weight {
	return m.used
}

// Limit returns the block weight limit.
func (m *BlockWeightMeter) Limit() weights.Weight {
	return m.limit
}

// Remaining returns the unconsumed budget.
func (m *BlockWeightMeter) Remaining() weights.Weight {
	return m.limit - m.used
}
