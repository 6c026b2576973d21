package ir

// RuntimeVersion is the pallet runtime version reported by palletctl.
const RuntimeVersion = "0.1.0"
