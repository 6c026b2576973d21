// Package pallet is the call dispatcher of the template pallet.
//
// Every call is authenticated first (signed origins only), then reads and
// writes the two storage cells through a state.Cells it is given, guards its
// arithmetic with package arith, and deposits events on an events.Emitter.
//
// Some calls are deliberate negative examples:
//   - unbounded_repeat_hash is declared at a constant weight however many
//     rounds it runs.
//   - overflow_unsafe_add wraps instead of failing.
//   - unwrap_unsafe_read aborts with an UnrecoverableError on an absent cell.
//   - non_transactional_sum writes CurrentValue before it can fail.
//
// Their safe counterparts sit next to them. The pallet does not enforce
// weights; the runtime consults package weights before dispatch.
package pallet
