// Package ir provides the canonical value types shared by every layer of the
// pallet: accounts, origins, calls, events and the records persisted for them.
//
// This package contains type definitions and their encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Calls and events are closed tagged unions (sealed interfaces). A new
//     variant must be added here and handled by every type switch.
//   - NO float types anywhere; all numbers are fixed-width integers.
//   - Canonical JSON (sorted keys, NFC strings, no nulls) is the only encoding
//     used for hashing and persistence.
//   - Logical sequence numbers only, never wall-clock timestamps.
package ir
