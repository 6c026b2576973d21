// Package store is the SQLite backend of the block runtime.
//
// It keeps the committed pallet cells next to an append-only history:
//   - blocks: one row per built block, with its trace id and weight use
//   - extrinsics: one row per applied call, with origin, args, declared
//     weight and outcome
//   - cell_changes: the change set each extrinsic committed
//   - events: every deposited event, keyed by its logical seq
//
// CommitExtrinsic writes an extrinsic, its changes, its events and the
// updated cells in one transaction. Store satisfies runtime.Backend and
// runtime.History.
//
// History is ordered by block number and extrinsic index; events by seq.
// Call arguments and event payloads are stored as canonical JSON.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
