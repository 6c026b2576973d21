package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent(t *testing.T) {
	events := []Event{
		ValueStored{Value: 42, Who: DevAccount("alice")},
		HashComputed{Digest: Blake2_256([]byte("x"))},
		SumComputed{Sum: 4294967295},
	}
	for _, ev := range events {
		t.Run(ev.Kind(), func(t *testing.T) {
			kind, payload, err := EncodeEvent(ev)
			require.NoError(t, err)

			// Payloads go through canonical JSON in the store.
			data, err := MarshalCanonical(payload)
			require.NoError(t, err)
			obj, err := UnmarshalCanonicalObject(data)
			require.NoError(t, err)

			back, err := DecodeEvent(kind, obj)
			require.NoError(t, err)
			assert.Equal(t, ev, back)
		})
	}
}

func TestEncodeEvent_Payloads(t *testing.T) {
	_, payload, err := EncodeEvent(ValueStored{Value: 1, Who: DevAccount("alice")})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"value": uint32(1),
		"who":   "0xd62869aad9cd7372bd3f58306a92227f091968e17b35d903276bf5d89fdba13a",
	}, payload)

	_, _, err = EncodeEvent(nil)
	require.Error(t, err)
}

func TestDecodeEvent_Errors(t *testing.T) {
	_, err := DecodeEvent("transfer", map[string]any{})
	require.Error(t, err)

	_, err = DecodeEvent(EventValueStored, map[string]any{"value": 1, "who": "alice"})
	require.Error(t, err)

	_, err = DecodeEvent(EventHashResult, map[string]any{})
	require.Error(t, err)

	_, err = DecodeEvent(EventSumResult, map[string]any{"sum": -1})
	require.Error(t, err)
}
