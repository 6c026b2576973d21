package ir

import (
	"fmt"
)

// Event kinds as persisted and shown to observers.
const (
	EventValueStored = "value_stored"
	EventHashResult  = "hash_result"
	EventSumResult   = "sum_result"
)

// Event is a sealed tagged union of the notifications the pallet emits.
// Events are immutable values once emitted.
type Event interface {
	// Kind returns the stable event kind.
	Kind() string

	isEvent()
}

// ValueStored reports that Value was written to the current-value cell by Who.
type ValueStored struct {
	Value uint32
	Who   AccountID
}

// HashComputed carries the final digest of a repeated-hash call.
type HashComputed struct {
	Digest Hash
}

// SumComputed carries the sum written by a sum call.
type SumComputed struct {
	Sum uint32
}

func (ValueStored) Kind() string  { return EventValueStored }
func (HashComputed) Kind() string { return EventHashResult }
func (SumComputed) Kind() string  { return EventSumResult }

func (ValueStored) isEvent()  {}
func (HashComputed) isEvent() {}
func (SumComputed) isEvent()  {}

// EncodeEvent splits an event into its kind and payload object.
func EncodeEvent(ev Event) (string, map[string]any, error) {
	switch e := ev.(type) {
	case ValueStored:
		return e.Kind(), map[string]any{"value": e.Value, "who": e.Who.String()}, nil
	case HashComputed:
		return e.Kind(), map[string]any{"digest": e.Digest.String()}, nil
	case SumComputed:
		return e.Kind(), map[string]any{"sum": e.Sum}, nil
	case nil:
		return "", nil, fmt.Errorf("encode event: nil event")
	default:
		return "", nil, fmt.Errorf("encode event: unsupported event type %T", ev)
	}
}

// DecodeEvent rebuilds an event from its kind and payload object.
func DecodeEvent(kind string, payload map[string]any) (Event, error) {
	switch kind {
	case EventValueStored:
		value, err := toUint32(payload["value"])
		if err != nil {
			return nil, fmt.Errorf("decode %s: value: %w", kind, err)
		}
		whoStr, _ := payload["who"].(string)
		who, err := ParseAccountID(whoStr)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return ValueStored{Value: value, Who: who}, nil
	case EventHashResult:
		digestStr, _ := payload["digest"].(string)
		digest, err := ParseHash(digestStr)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return HashComputed{Digest: digest}, nil
	case EventSumResult:
		sum, err := toUint32(payload["sum"])
		if err != nil {
			return nil, fmt.Errorf("decode %s: sum: %w", kind, err)
		}
		return SumComputed{Sum: sum}, nil
	default:
		return nil, fmt.Errorf("decode event: unknown kind %q", kind)
	}
}
