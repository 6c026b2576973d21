package pallet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchError_Error(t *testing.T) {
	err := overflow("transactional_sum", nil)
	assert.Equal(t, "OVERFLOW: arithmetic overflow (call=transactional_sum)", err.Error())
	assert.Equal(t, "NONE_VALUE: value is absent", ErrNoneValue.Error())
}

func TestDispatchError_IsByCode(t *testing.T) {
	err := fmt.Errorf("apply: %w", noneValue("increment_or_fail"))

	assert.True(t, errors.Is(err, ErrNoneValue))
	assert.False(t, errors.Is(err, ErrOverflow))
	assert.True(t, IsNoneValue(err))
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, ErrCodeNoneValue, CodeOf(err))
}

func TestDispatchError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := overflow("overflow_safe_add", cause)
	assert.ErrorIs(t, err, cause)
}

func TestUnrecoverableError(t *testing.T) {
	err := fmt.Errorf("block 3: %w", &UnrecoverableError{Call: "unwrap_unsafe_read", Reason: "absent"})

	assert.True(t, IsUnrecoverable(err))
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, ErrCodeUnrecoverable, CodeOf(err))
	assert.Contains(t, err.Error(), "UNRECOVERABLE: absent (call=unwrap_unsafe_read)")
}

func TestCodeOf_Foreign(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("x")))
	assert.False(t, IsRecoverable(errors.New("x")))
}
