package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Call names. These are the stable identifiers used in persisted records,
// scenario files and on the command line.
const (
	CallStoreValue          = "store_value"
	CallRemoveValue         = "remove_value"
	CallIncrementOrFail     = "increment_or_fail"
	CallBoundedRepeatHash   = "bounded_repeat_hash"
	CallUnboundedRepeatHash = "unbounded_repeat_hash"
	CallOverflowUnsafeAdd   = "overflow_unsafe_add"
	CallOverflowSafeAdd     = "overflow_safe_add"
	CallUnwrapUnsafeRead    = "unwrap_unsafe_read"
	CallNonTransactionalSum = "non_transactional_sum"
	CallTransactionalSum    = "transactional_sum"
)

// Call is a sealed tagged union over the pallet's entry points.
// Only the variant types declared in this file implement it.
type Call interface {
	// Name returns the stable call name.
	Name() string

	isCall()
}

// StoreValue writes Value into the current-value cell.
type StoreValue struct {
	Value uint32
}

// RemoveValue clears the current-value cell.
type RemoveValue struct{}

// IncrementOrFail adds one to a present current value.
type IncrementOrFail struct{}

// RepeatHash chains the hasher Times rounds starting from the caller's
// account hash. Bounded selects the benchmarked entry point; the unbounded
// one is charged a constant weight no matter how large Times is.
type RepeatHash struct {
	Times   uint32
	Bounded bool
}

// OverflowUnsafeAdd adds Added to the current value with wrapping arithmetic.
type OverflowUnsafeAdd struct {
	Added uint32
}

// OverflowSafeAdd adds Added to the current value with checked arithmetic.
type OverflowSafeAdd struct {
	Added uint32
}

// UnwrapUnsafeRead increments a current value that it assumes is present.
type UnwrapUnsafeRead struct{}

// NonTransactionalSum writes Val before checking the sum.
type NonTransactionalSum struct {
	Val uint32
}

// TransactionalSum checks the sum before writing anything.
type TransactionalSum struct {
	Val uint32
}

func (StoreValue) Name() string          { return CallStoreValue }
func (RemoveValue) Name() string         { return CallRemoveValue }
func (IncrementOrFail) Name() string     { return CallIncrementOrFail }
func (OverflowUnsafeAdd) Name() string   { return CallOverflowUnsafeAdd }
func (OverflowSafeAdd) Name() string     { return CallOverflowSafeAdd }
func (UnwrapUnsafeRead) Name() string    { return CallUnwrapUnsafeRead }
func (NonTransactionalSum) Name() string { return CallNonTransactionalSum }
func (TransactionalSum) Name() string    { return CallTransactionalSum }

func (c RepeatHash) Name() string {
	if c.Bounded {
		return CallBoundedRepeatHash
	}
	return CallUnboundedRepeatHash
}

func (StoreValue) isCall()          {}
func (RemoveValue) isCall()         {}
func (IncrementOrFail) isCall()     {}
func (RepeatHash) isCall()          {}
func (OverflowUnsafeAdd) isCall()   {}
func (OverflowSafeAdd) isCall()     {}
func (UnwrapUnsafeRead) isCall()    {}
func (NonTransactionalSum) isCall() {}
func (TransactionalSum) isCall()    {}

// callParams lists the fixed parameter names of every call.
var callParams = map[string][]string{
	CallStoreValue:          {"value"},
	CallRemoveValue:         nil,
	CallIncrementOrFail:     nil,
	CallBoundedRepeatHash:   {"times"},
	CallUnboundedRepeatHash: {"times"},
	CallOverflowUnsafeAdd:   {"added"},
	CallOverflowSafeAdd:     {"added"},
	CallUnwrapUnsafeRead:    nil,
	CallNonTransactionalSum: {"val"},
	CallTransactionalSum:    {"val"},
}

// CallNames returns every call name in sorted order.
func CallNames() []string {
	names := make([]string, 0, len(callParams))
	for name := range callParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallParams returns the parameter names a call takes.
func CallParams(name string) ([]string, bool) {
	params, ok := callParams[name]
	return params, ok
}

// EncodeCall splits a call into its name and argument object.
func EncodeCall(call Call) (string, map[string]any, error) {
	switch c := call.(type) {
	case StoreValue:
		return c.Name(), map[string]any{"value": c.Value}, nil
	case RemoveValue, IncrementOrFail, UnwrapUnsafeRead:
		return c.Name(), map[string]any{}, nil
	case RepeatHash:
		return c.Name(), map[string]any{"times": c.Times}, nil
	case OverflowUnsafeAdd:
		return c.Name(), map[string]any{"added": c.Added}, nil
	case OverflowSafeAdd:
		return c.Name(), map[string]any{"added": c.Added}, nil
	case NonTransactionalSum:
		return c.Name(), map[string]any{"val": c.Val}, nil
	case TransactionalSum:
		return c.Name(), map[string]any{"val": c.Val}, nil
	case nil:
		return "", nil, fmt.Errorf("encode call: nil call")
	default:
		return "", nil, fmt.Errorf("encode call: unsupported call type %T", call)
	}
}

// DecodeCall builds a call from its name and arguments. Every parameter is
// required and unknown parameters are rejected.
func DecodeCall(name string, args map[string]any) (Call, error) {
	params, ok := callParams[name]
	if !ok {
		return nil, fmt.Errorf("decode call: unknown call %q", name)
	}
	for key := range args {
		if !contains(params, key) {
			return nil, fmt.Errorf("decode call %s: unexpected argument %q", name, key)
		}
	}
	values := make(map[string]uint32, len(params))
	for _, p := range params {
		raw, present := args[p]
		if !present {
			return nil, fmt.Errorf("decode call %s: missing argument %q", name, p)
		}
		v, err := toUint32(raw)
		if err != nil {
			return nil, fmt.Errorf("decode call %s: argument %q: %w", name, p, err)
		}
		values[p] = v
	}

	switch name {
	case CallStoreValue:
		return StoreValue{Value: values["value"]}, nil
	case CallRemoveValue:
		return RemoveValue{}, nil
	case CallIncrementOrFail:
		return IncrementOrFail{}, nil
	case CallBoundedRepeatHash:
		return RepeatHash{Times: values["times"], Bounded: true}, nil
	case CallUnboundedRepeatHash:
		return RepeatHash{Times: values["times"], Bounded: false}, nil
	case CallOverflowUnsafeAdd:
		return OverflowUnsafeAdd{Added: values["added"]}, nil
	case CallOverflowSafeAdd:
		return OverflowSafeAdd{Added: values["added"]}, nil
	case CallUnwrapUnsafeRead:
		return UnwrapUnsafeRead{}, nil
	case CallNonTransactionalSum:
		return NonTransactionalSum{Val: values["val"]}, nil
	default:
		return TransactionalSum{Val: values["val"]}, nil
	}
}

// ParseCallArgs parses "key=value" pairs as given on a command line.
func ParseCallArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: want key=value", pair)
		}
		if _, dup := args[key]; dup {
			return nil, fmt.Errorf("duplicate argument %q", key)
		}
		args[key] = value
	}
	return args, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// toUint32 converts the integer shapes produced by YAML, canonical JSON
// (json.Number) and the command line into a uint32. Floats are rejected.
func toUint32(v any) (uint32, error) {
	var n int64
	switch val := v.(type) {
	case uint32:
		return val, nil
	case int:
		n = int64(val)
	case int64:
		n = val
	case uint64:
		if val > math.MaxUint32 {
			return 0, fmt.Errorf("value %d out of range for u32", val)
		}
		return uint32(val), nil
	case json.Number:
		parsed, err := strconv.ParseUint(val.String(), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a u32", val.String())
		}
		return uint32(parsed), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(val), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a u32", val)
		}
		return uint32(parsed), nil
	case float32, float64:
		return 0, fmt.Errorf("floats are forbidden: %v", val)
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range for u32", n)
	}
	return uint32(n), nil
}
