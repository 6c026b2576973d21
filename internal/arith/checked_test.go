package arith

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint32
		want    uint32
		wantErr bool
	}{
		{"zero", 0, 0, 0, false},
		{"small", 40, 2, 42, false},
		{"exactly max", math.MaxUint32 - 1, 1, math.MaxUint32, false},
		{"max plus zero", math.MaxUint32, 0, math.MaxUint32, false},
		{"max plus one", math.MaxUint32, 1, 0, true},
		{"both large", math.MaxUint32 / 2, math.MaxUint32/2 + 2, 0, true},
		{"max plus max", math.MaxUint32, math.MaxUint32, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckedAdd(tt.a, tt.b)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckedAdd_Commutative(t *testing.T) {
	pairs := [][2]uint32{{1, 2}, {math.MaxUint32, 1}, {7, math.MaxUint32 - 7}}
	for _, p := range pairs {
		x, errX := CheckedAdd(p[0], p[1])
		y, errY := CheckedAdd(p[1], p[0])
		assert.Equal(t, x, y)
		assert.Equal(t, errX, errY)
	}
}

// WrappingAdd is the documented hazard: at the boundary it wraps to a small
// number instead of failing.
func TestWrappingAdd_WrapsAtBoundary(t *testing.T) {
	assert.Equal(t, uint32(0), WrappingAdd(math.MaxUint32, 1))
	assert.Equal(t, uint32(4), WrappingAdd(math.MaxUint32, 5))
	assert.Equal(t, uint32(42), WrappingAdd(40, 2))
}

func TestSaturatingU64(t *testing.T) {
	assert.Equal(t, uint64(5), SaturatingAddU64(2, 3))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingAddU64(math.MaxUint64, 1))
	assert.Equal(t, uint64(6), SaturatingMulU64(2, 3))
	assert.Equal(t, uint64(0), SaturatingMulU64(0, math.MaxUint64))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingMulU64(math.MaxUint64, 2))
}
