package runtime

import (
	"errors"
	"fmt"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/weights"
)

// OutcomeExhaustsResources is reported for a call rejected because its
// declared weight exceeds the whole block limit.
const OutcomeExhaustsResources = "EXHAUSTS_RESOURCES"

// ErrPoolClosed is returned by Submit after the executor is closed.
var ErrPoolClosed = errors.New("extrinsic pool is closed")

// ExhaustsResourcesError rejects a call whose declared weight exceeds the
// whole block limit.
type ExhaustsResourcesError struct {
	Call   string
	Weight weights.Weight
	Limit  weights.Weight
}

func (e *ExhaustsResourcesError) Error() string {
	return fmt.Sprintf("%s: %s declares %d, block limit is %d",
		OutcomeExhaustsResources, e.Call, uint64(e.Weight), uint64(e.Limit))
}

// HaltedError reports a block stopped by an unrecoverable call abort.
// It wraps the pallet's UnrecoverableError.
type HaltedError struct {
	Block       uint64
	Index       uint32
	ExtrinsicID string
	Err         error
}

func (e *HaltedError) Error() string {
	return fmt.Sprintf("block %d halted at extrinsic %d (%s): %v", e.Block, e.Index, e.ExtrinsicID, e.Err)
}

func (e *HaltedError) Unwrap() error {
	return e.Err
}

// IsExhaustsResources returns true if err is or wraps an ExhaustsResourcesError.
func IsExhaustsResources(err error) bool {
	var ee *ExhaustsResourcesError
	return errors.As(err, &ee)
}

// IsHalted returns true if err is or wraps a HaltedError.
func IsHalted(err error) bool {
	var he *HaltedError
	return errors.As(err, &he)
}
