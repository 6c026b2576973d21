// Package arith holds the pallet's arithmetic guard: additions that report
// overflow instead of wrapping.
package arith

import (
	"errors"
	"math"
)

// ErrOverflow is returned when a result does not fit in 32 bits.
var ErrOverflow = errors.New("arithmetic overflow")

// CheckedAdd returns a+b, or ErrOverflow if the sum exceeds math.MaxUint32.
func CheckedAdd(a, b uint32) (uint32, error) {
	if b > math.MaxUint32-a {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// WrappingAdd returns a+b modulo 2^32. It exists only for the call that
// deliberately skips the guard; nothing else may use it.
func WrappingAdd(a, b uint32) uint32 {
	return a + b
}

// SaturatingAddU64 returns a+b clamped to math.MaxUint64.
func SaturatingAddU64(a, b uint64) uint64 {
	if b > math.MaxUint64-a {
		return math.MaxUint64
	}
	return a + b
}

// SaturatingMulU64 returns a*b clamped to math.MaxUint64.
func SaturatingMulU64(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}
