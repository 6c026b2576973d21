package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allCalls() []Call {
	return []Call{
		StoreValue{Value: 42},
		RemoveValue{},
		IncrementOrFail{},
		RepeatHash{Times: 3, Bounded: true},
		RepeatHash{Times: 3},
		OverflowUnsafeAdd{Added: 1},
		OverflowSafeAdd{Added: 2},
		UnwrapUnsafeRead{},
		NonTransactionalSum{Val: 3},
		TransactionalSum{Val: 4},
	}
}

func TestCallNames_OnePerEntryPoint(t *testing.T) {
	names := CallNames()
	assert.Len(t, names, 10)

	seen := map[string]bool{}
	for _, c := range allCalls() {
		seen[c.Name()] = true
		_, ok := CallParams(c.Name())
		assert.True(t, ok, c.Name())
	}
	assert.Len(t, seen, 10)
}

func TestEncodeDecodeCall(t *testing.T) {
	for _, c := range allCalls() {
		t.Run(c.Name(), func(t *testing.T) {
			name, args, err := EncodeCall(c)
			require.NoError(t, err)
			assert.Equal(t, c.Name(), name)

			back, err := DecodeCall(name, args)
			require.NoError(t, err)
			assert.Equal(t, c, back)
		})
	}
}

func TestDecodeCall_ArgumentShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"int", 7},
		{"int64", int64(7)},
		{"uint64", uint64(7)},
		{"uint32", uint32(7)},
		{"json number", json.Number("7")},
		{"string", " 7 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DecodeCall(CallStoreValue, map[string]any{"value": tt.raw})
			require.NoError(t, err)
			assert.Equal(t, StoreValue{Value: 7}, c)
		})
	}
}

func TestDecodeCall_Errors(t *testing.T) {
	tests := []struct {
		name string
		call string
		args map[string]any
		want string
	}{
		{"unknown call", "transfer", nil, `unknown call "transfer"`},
		{"missing", CallTransactionalSum, map[string]any{}, `missing argument "val"`},
		{"unexpected", CallRemoveValue, map[string]any{"value": 1}, `unexpected argument "value"`},
		{"negative", CallStoreValue, map[string]any{"value": -1}, "out of range"},
		{"too large", CallStoreValue, map[string]any{"value": int64(1) << 32}, "out of range"},
		{"too large uint64", CallStoreValue, map[string]any{"value": uint64(1) << 32}, "out of range"},
		{"float", CallStoreValue, map[string]any{"value": 1.0}, "floats are forbidden"},
		{"bad string", CallStoreValue, map[string]any{"value": "ten"}, "is not a u32"},
		{"bool", CallStoreValue, map[string]any{"value": true}, "unsupported value type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCall(tt.call, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEncodeCall_Nil(t *testing.T) {
	_, _, err := EncodeCall(nil)
	require.Error(t, err)
}

func TestParseCallArgs(t *testing.T) {
	args, err := ParseCallArgs([]string{"times=5", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"times": "5", "note": "a=b"}, args)

	_, err = ParseCallArgs([]string{"times"})
	require.Error(t, err)
	_, err = ParseCallArgs([]string{"=5"})
	require.Error(t, err)
	_, err = ParseCallArgs([]string{"a=1", "a=2"})
	require.Error(t, err)
}
