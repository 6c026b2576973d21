// Package weights is the pallet's cost model. It maps a call to the weight
// the block scheduler charges before admitting it.
//
// Coefficients are injected through a Table: the defaults are the figures of
// the original benchmark run, and a CUE document can override them. Nothing
// in this package measures anything.
package weights

import (
	"fmt"
	"math"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/arith"
)

// Weight is an estimate of execution time in picoseconds.
type Weight uint64

// MaxWeight is the saturation ceiling.
const MaxWeight Weight = math.MaxUint64

// Add returns w+o, saturating.
func (w Weight) Add(o Weight) Weight {
	return Weight(arith.SaturatingAddU64(uint64(w), uint64(o)))
}

// Mul returns w*n, saturating.
func (w Weight) Mul(n uint64) Weight {
	return Weight(arith.SaturatingMulU64(uint64(w), n))
}

// String renders the weight with its unit.
func (w Weight) String() string {
	return fmt.Sprintf("%dps", uint64(w))
}

// DBWeight is the cost of one storage read and one storage write.
type DBWeight struct {
	Read  Weight
	Write Weight
}

// RocksDBWeight is the reference database cost: 25µs per read, 100µs per write.
var RocksDBWeight = DBWeight{
	Read:  25_000_000,
	Write: 100_000_000,
}

// Reads returns the cost of n reads.
func (d DBWeight) Reads(n uint64) Weight {
	return d.Read.Mul(n)
}

// Writes returns the cost of n writes.
func (d DBWeight) Writes(n uint64) Weight {
	return d.Write.Mul(n)
}

// ReadsWrites returns the cost of r reads and w writes.
func (d DBWeight) ReadsWrites(r, w uint64) Weight {
	return d.Reads(r).Add(d.Writes(w))
}
