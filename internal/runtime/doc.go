// Package runtime builds blocks out of submitted calls.
//
// The Executor is the single writer over the pallet's committed cells. Calls
// are submitted to a FIFO pool from any goroutine; BuildBlock drains the pool
// on one goroutine, consults the declared weight of every call, and admits
// calls while the block's weight meter has room. Calls that do not fit stay
// in the pool for the next block. Calls that could never fit an empty block
// are rejected.
//
// Each admitted call runs against a fresh state.Overlay and events.Log. The
// overlay is committed after success and after a recoverable failure, so a
// call that writes before failing leaves its writes behind. An unrecoverable
// abort discards the overlay and events, is recorded, and halts the block.
//
// Every committed extrinsic and event is stamped from a logical Clock.
// Replay re-executes the recorded history on fresh memory and reports any
// divergence in outcome, change set or events.
package runtime
