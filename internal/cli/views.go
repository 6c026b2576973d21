package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/runtime"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

// ExtrinsicView is the printable form of an applied extrinsic.
type ExtrinsicView struct {
	ID      string          `json:"id"`
	Block   uint64          `json:"block"`
	Index   uint32          `json:"index"`
	Seq     int64           `json:"seq"`
	Origin  string          `json:"origin"`
	Call    string          `json:"call"`
	Args    map[string]any  `json:"args"`
	Weight  uint64          `json:"weight"`
	Outcome string          `json:"outcome"`
	Error   string          `json:"error,omitempty"`
	Changes []ir.CellChange `json:"changes"`
	Events  []EventView     `json:"events"`
}

// EventView is the printable form of a stored event.
type EventView struct {
	Seq         int64          `json:"seq"`
	Block       uint64         `json:"block,omitempty"`
	ExtrinsicID string         `json:"extrinsic_id,omitempty"`
	Call        string         `json:"call,omitempty"`
	Kind        string         `json:"kind"`
	Payload     map[string]any `json:"payload"`
}

// RejectedView is a call dropped for exceeding the block limit.
type RejectedView struct {
	Origin string         `json:"origin"`
	Call   string         `json:"call"`
	Args   map[string]any `json:"args"`
	Error  string         `json:"error"`
}

// BlockView is the printable form of a built block.
type BlockView struct {
	Number      uint64          `json:"number"`
	TraceID     string          `json:"trace_id"`
	WeightLimit uint64          `json:"weight_limit"`
	WeightUsed  uint64          `json:"weight_used"`
	Extrinsics  []ExtrinsicView `json:"extrinsics"`
	Rejected    []RejectedView  `json:"rejected"`
	Deferred    int             `json:"deferred"`
	Halted      string          `json:"halted,omitempty"`
}

func newExtrinsicView(rec ir.ExtrinsicRecord) (ExtrinsicView, error) {
	name, args, err := ir.EncodeCall(rec.Call)
	if err != nil {
		return ExtrinsicView{}, err
	}
	view := ExtrinsicView{
		ID:      rec.ID,
		Block:   rec.Block,
		Index:   rec.Index,
		Seq:     rec.Seq,
		Origin:  rec.Origin.String(),
		Call:    name,
		Args:    args,
		Weight:  rec.Weight,
		Outcome: rec.Outcome,
		Error:   rec.Error,
		Changes: append([]ir.CellChange{}, rec.Changes...),
		Events:  make([]EventView, 0, len(rec.Events)),
	}
	for _, ev := range rec.Events {
		ev, err := newEventView(ev)
		if err != nil {
			return ExtrinsicView{}, err
		}
		view.Events = append(view.Events, ev)
	}
	return view, nil
}

func newEventView(rec ir.EventRecord) (EventView, error) {
	kind, payload, err := ir.EncodeEvent(rec.Event)
	if err != nil {
		return EventView{}, err
	}
	return EventView{Seq: rec.Seq, Kind: kind, Payload: payload}, nil
}

func newBlockView(res *runtime.BlockResult, halted error) (BlockView, error) {
	view := BlockView{
		Number:      res.Block.Number,
		TraceID:     res.Block.TraceID,
		WeightLimit: res.Block.WeightLimit,
		WeightUsed:  res.Block.WeightUsed,
		Extrinsics:  make([]ExtrinsicView, 0, len(res.Applied)),
		Rejected:    make([]RejectedView, 0, len(res.Rejected)),
		Deferred:    res.Deferred,
	}
	for _, rec := range res.Applied {
		xv, err := newExtrinsicView(rec)
		if err != nil {
			return BlockView{}, err
		}
		view.Extrinsics = append(view.Extrinsics, xv)
	}
	for _, r := range res.Rejected {
		name, args, err := ir.EncodeCall(r.Extrinsic.Call)
		if err != nil {
			return BlockView{}, err
		}
		view.Rejected = append(view.Rejected, RejectedView{
			Origin: r.Extrinsic.Origin.String(),
			Call:   name,
			Args:   args,
			Error:  r.Err.Error(),
		})
	}
	if halted != nil {
		view.Halted = halted.Error()
	}
	return view, nil
}

// cellsView renders cells with null for absent ones.
func cellsView(cells map[state.Cell]uint32) map[string]any {
	out := make(map[string]any, len(state.AllCells))
	for _, c := range state.AllCells {
		if v, ok := cells[c]; ok {
			out[string(c)] = v
		} else {
			out[string(c)] = nil
		}
	}
	return out
}

func writeCells(w io.Writer, cells map[state.Cell]uint32) {
	for _, c := range state.AllCells {
		if v, ok := cells[c]; ok {
			fmt.Fprintf(w, "%s: %d\n", c, v)
		} else {
			fmt.Fprintf(w, "%s: <absent>\n", c)
		}
	}
}

func writeBlock(w io.Writer, b BlockView) {
	fmt.Fprintf(w, "Block %d (trace %s) weight %d/%d\n", b.Number, b.TraceID, b.WeightUsed, b.WeightLimit)
	for _, x := range b.Extrinsics {
		writeExtrinsic(w, x)
	}
	for _, r := range b.Rejected {
		fmt.Fprintf(w, "  ✗ %s %s by %s: %s\n", r.Call, formatArgs(r.Args), r.Origin, r.Error)
	}
	if b.Deferred > 0 {
		fmt.Fprintf(w, "  %d deferred to the next block\n", b.Deferred)
	}
	if b.Halted != "" {
		fmt.Fprintf(w, "  halted: %s\n", b.Halted)
	}
}

func writeExtrinsic(w io.Writer, x ExtrinsicView) {
	mark := "✓"
	if x.Outcome != ir.OutcomeOK {
		mark = "✗"
	}
	fmt.Fprintf(w, "  %s #%d %s %s by %s: %s (weight %d)\n",
		mark, x.Index, x.Call, formatArgs(x.Args), x.Origin, x.Outcome, x.Weight)
	if x.Error != "" {
		fmt.Fprintf(w, "      error: %s\n", x.Error)
	}
	for _, c := range x.Changes {
		if c.Present {
			fmt.Fprintf(w, "      %s := %d\n", c.Cell, c.Value)
		} else {
			fmt.Fprintf(w, "      %s cleared\n", c.Cell)
		}
	}
	for _, ev := range x.Events {
		fmt.Fprintf(w, "      event %s %s\n", ev.Kind, formatArgs(ev.Payload))
	}
}

// formatArgs renders a map as "{a=1 b=2}" with sorted keys.
func formatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, args[k])
	}
	return "{" + strings.Join(parts, " ") + "}"
}
