package ir

// OutcomeOK is the outcome recorded for a call that succeeded.
// Failed calls record their error code instead.
const OutcomeOK = "OK"

// CellChange is one entry of a call's storage change set.
// Present=false means the cell was cleared.
type CellChange struct {
	Cell    string `json:"cell"`
	Value   uint32 `json:"value"`
	Present bool   `json:"present"`
}

// EventRecord is an emitted event stamped with its position in the log.
type EventRecord struct {
	Seq   int64 `json:"seq"`   // Logical clock, global across blocks
	Index int   `json:"index"` // Emission order within the call
	Event Event `json:"-"`
}

// ExtrinsicRecord is the persisted result of applying one call in a block.
type ExtrinsicRecord struct {
	ID      string        `json:"id"` // Content-addressed, see ExtrinsicID
	Block   uint64        `json:"block"`
	Index   uint32        `json:"index"`
	Seq     int64         `json:"seq"`
	Origin  Origin        `json:"-"`
	Call    Call          `json:"-"`
	Weight  uint64        `json:"weight"`
	Outcome string        `json:"outcome"`
	Error   string        `json:"error,omitempty"`
	Changes []CellChange  `json:"changes"`
	Events  []EventRecord `json:"events"`
}

// BlockRecord summarises one built block.
type BlockRecord struct {
	Number      uint64 `json:"number"`
	TraceID     string `json:"trace_id"`
	WeightLimit uint64 `json:"weight_limit"`
	WeightUsed  uint64 `json:"weight_used"`
	Extrinsics  int    `json:"extrinsics"`
}
