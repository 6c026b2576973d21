package store

import (
	"fmt"
	"math"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
)

// marshalCall splits a call into its name and canonical JSON args.
func marshalCall(call ir.Call) (string, string, error) {
	name, args, err := ir.EncodeCall(call)
	if err != nil {
		return "", "", fmt.Errorf("marshal call: %w", err)
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", "", fmt.Errorf("marshal call args: %w", err)
	}
	return name, string(data), nil
}

// unmarshalCall rebuilds a call from its stored name and args.
func unmarshalCall(name, args string) (ir.Call, error) {
	obj, err := ir.UnmarshalCanonicalObject([]byte(args))
	if err != nil {
		return nil, fmt.Errorf("unmarshal call args: %w", err)
	}
	call, err := ir.DecodeCall(name, obj)
	if err != nil {
		return nil, fmt.Errorf("unmarshal call: %w", err)
	}
	return call, nil
}

// marshalEvent splits an event into its kind and canonical JSON payload.
func marshalEvent(ev ir.Event) (string, string, error) {
	kind, payload, err := ir.EncodeEvent(ev)
	if err != nil {
		return "", "", fmt.Errorf("marshal event: %w", err)
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", "", fmt.Errorf("marshal event payload: %w", err)
	}
	return kind, string(data), nil
}

// unmarshalEvent rebuilds an event from its stored kind and payload.
func unmarshalEvent(kind, payload string) (ir.Event, error) {
	obj, err := ir.UnmarshalCanonicalObject([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("unmarshal event payload: %w", err)
	}
	ev, err := ir.DecodeEvent(kind, obj)
	if err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// toSQLWeight clamps a weight into SQLite's signed INTEGER range. Weights
// saturate at MaxUint64, which the driver cannot bind.
func toSQLWeight(w uint64) int64 {
	if w > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(w)
}

// fromSQLWeight reverses toSQLWeight. A clamped weight reads back as
// MaxUint64.
func fromSQLWeight(v int64) uint64 {
	if v == math.MaxInt64 {
		return math.MaxUint64
	}
	if v < 0 {
		return 0
	}
	return uint64(v)
}
