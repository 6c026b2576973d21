package pallet

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes recoverable dispatch failures.
type ErrorCode string

const (
	// ErrCodeUnauthenticated indicates the origin was not a signed account.
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"

	// ErrCodeNoneValue indicates a required cell was absent.
	ErrCodeNoneValue ErrorCode = "NONE_VALUE"

	// ErrCodeOverflow indicates checked arithmetic failed.
	ErrCodeOverflow ErrorCode = "OVERFLOW"

	// ErrCodeUnrecoverable tags UnrecoverableError. It is never the code of
	// a DispatchError.
	ErrCodeUnrecoverable ErrorCode = "UNRECOVERABLE"
)

// DispatchError is a recoverable call failure. The call has ended but the
// block continues.
//
// A DispatchError says nothing about cell state on its own. Most calls fail
// before writing; non_transactional_sum fails after writing CurrentValue.
type DispatchError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Call is the name of the failing call, if known.
	Call string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Call != "" {
		return fmt.Sprintf("%s: %s (call=%s)", e.Code, e.Message, e.Call)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is matches any DispatchError with the same code, so callers can write
// errors.Is(err, pallet.ErrOverflow).
func (e *DispatchError) Is(target error) bool {
	t, ok := target.(*DispatchError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrUnauthenticated = &DispatchError{Code: ErrCodeUnauthenticated, Message: "origin is not signed"}
	ErrNoneValue       = &DispatchError{Code: ErrCodeNoneValue, Message: "value is absent"}
	ErrOverflow        = &DispatchError{Code: ErrCodeOverflow, Message: "arithmetic overflow"}
)

// UnrecoverableError is the fatal failure of unwrap_unsafe_read: the call
// read an absent cell it assumed was present. It is not a DispatchError.
// The runtime discards the call's effects and halts the block.
type UnrecoverableError struct {
	// Call is the name of the aborting call.
	Call string

	// Reason describes the broken assumption.
	Reason string
}

// Error implements the error interface.
func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("%s: %s (call=%s)", ErrCodeUnrecoverable, e.Reason, e.Call)
}

// IsUnauthenticated returns true if err is an UNAUTHENTICATED dispatch error.
func IsUnauthenticated(err error) bool {
	return CodeOf(err) == ErrCodeUnauthenticated
}

// IsNoneValue returns true if err is a NONE_VALUE dispatch error.
func IsNoneValue(err error) bool {
	return CodeOf(err) == ErrCodeNoneValue
}

// IsOverflow returns true if err is an OVERFLOW dispatch error.
func IsOverflow(err error) bool {
	return CodeOf(err) == ErrCodeOverflow
}

// IsUnrecoverable returns true if err is or wraps an UnrecoverableError.
func IsUnrecoverable(err error) bool {
	var ue *UnrecoverableError
	return errors.As(err, &ue)
}

// IsRecoverable returns true if err is or wraps a DispatchError.
// Unrecoverable aborts are never recoverable.
func IsRecoverable(err error) bool {
	if IsUnrecoverable(err) {
		return false
	}
	var de *DispatchError
	return errors.As(err, &de)
}

// CodeOf returns the error code of err, or "" for nil and foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ue *UnrecoverableError
	if errors.As(err, &ue) {
		return ErrCodeUnrecoverable
	}
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func unauthenticated(call string) error {
	return &DispatchError{Code: ErrCodeUnauthenticated, Call: call, Message: "origin is not signed"}
}

func noneValue(call string) error {
	return &DispatchError{Code: ErrCodeNoneValue, Call: call, Message: "value is absent"}
}

func overflow(call string, cause error) error {
	return &DispatchError{Code: ErrCodeOverflow, Call: call, Message: "arithmetic overflow", Err: cause}
}
