// Package harness runs YAML scenarios against the pallet.
//
// A scenario seeds the cells, runs a list of calls through the block
// runtime on memory, checks each call's outcome, and then evaluates
// assertions on the final cells and the emitted events. Every call is built
// into its own block, so an unrecoverable abort halts only that call's
// block and a call over the block limit is reported as EXHAUSTS_RESOURCES.
//
// The run is deterministic: block trace ids are fixed and callers are
// development accounts. RunWithGolden compares the canonical JSON trace
// with testdata/golden/<name>.golden. To regenerate golden files:
//
//	go test ./internal/harness -update
package harness
