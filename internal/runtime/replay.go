package runtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/events"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/pallet"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/weights"
)

// Mismatch is one divergence between a recorded extrinsic and its replay.
type Mismatch struct {
	ExtrinsicID string `json:"extrinsic_id"`
	Block       uint64 `json:"block"`
	Index       uint32 `json:"index"`
	Field       string `json:"field"` // outcome, changes, events or weight
	Recorded    string `json:"recorded"`
	Replayed    string `json:"replayed"`
}

// ReplayReport is the result of re-executing a recorded history.
type ReplayReport struct {
	Blocks     int                   `json:"blocks"`
	Extrinsics int                   `json:"extrinsics"`
	Mismatches []Mismatch            `json:"mismatches"`
	FinalCells map[state.Cell]uint32 `json:"final_cells"`
}

// Deterministic reports whether the replay reproduced the history exactly.
func (r *ReplayReport) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// Replay re-executes every recorded extrinsic of h, oldest first, on fresh
// memory cells seeded with genesis, and compares outcome, change set and
// events with what was recorded.
//
// Replay applies its own change sets, not the recorded ones, so a divergence
// shows up again in every later extrinsic that depends on it. If info is not
// nil the recorded weights are compared with info's prices as well.
func Replay(ctx context.Context, h History, genesis map[state.Cell]uint32, info weights.Info) (*ReplayReport, error) {
	blocks, err := h.Blocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: load blocks: %w", err)
	}

	cells := state.NewMemoryFrom(genesis)
	report := &ReplayReport{Blocks: len(blocks), Mismatches: []Mismatch{}}

	for _, b := range blocks {
		recs, err := h.Extrinsics(ctx, b.Number)
		if err != nil {
			return nil, fmt.Errorf("replay: load block %d: %w", b.Number, err)
		}
		for _, rec := range recs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			mismatches, err := replayOne(cells, rec, info)
			if err != nil {
				return nil, fmt.Errorf("replay: extrinsic %s: %w", rec.ID, err)
			}
			report.Extrinsics++
			report.Mismatches = append(report.Mismatches, mismatches...)
		}
	}

	report.FinalCells = cells.Snapshot()
	return report, nil
}

func replayOne(cells *state.Memory, rec ir.ExtrinsicRecord, info weights.Info) ([]Mismatch, error) {
	if rec.Call == nil {
		return nil, fmt.Errorf("record has no call")
	}

	overlay := state.NewOverlay(cells)
	log := events.NewLog()
	outcome, keep, err := outcomeOf(pallet.New(overlay, log).Dispatch(rec.Origin, rec.Call))
	if err != nil {
		return nil, err
	}
	var evs []ir.Event
	if keep {
		evs = log.Events()
	} else {
		overlay.Discard()
	}
	changes := overlay.Changes()

	var out []Mismatch
	mismatch := func(field, recorded, replayed string) {
		out = append(out, Mismatch{
			ExtrinsicID: rec.ID,
			Block:       rec.Block,
			Index:       rec.Index,
			Field:       field,
			Recorded:    recorded,
			Replayed:    replayed,
		})
	}

	if outcome != rec.Outcome {
		mismatch("outcome", rec.Outcome, outcome)
	}
	if !slices.Equal(changes, rec.Changes) {
		mismatch("changes", formatChanges(rec.Changes), formatChanges(changes))
	}

	recorded, err := eventDigests(recordedEvents(rec.Events))
	if err != nil {
		return nil, err
	}
	replayed, err := eventDigests(evs)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(recorded, replayed) {
		mismatch("events", fmt.Sprint(recorded), fmt.Sprint(replayed))
	}

	if info != nil {
		if w := uint64(info.Cost(rec.Call)); w != rec.Weight {
			mismatch("weight", fmt.Sprint(rec.Weight), fmt.Sprint(w))
		}
	}

	if err := cells.Apply(changes); err != nil {
		return nil, err
	}
	return out, nil
}

func recordedEvents(recs []ir.EventRecord) []ir.Event {
	out := make([]ir.Event, len(recs))
	for i, r := range recs {
		out[i] = r.Event
	}
	return out
}

func eventDigests(evs []ir.Event) ([]string, error) {
	out := make([]string, len(evs))
	for i, ev := range evs {
		d, err := ir.EventDigest(ev)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func formatChanges(changes []ir.CellChange) string {
	if len(changes) == 0 {
		return "[]"
	}
	s := "["
	for i, c := range changes {
		if i > 0 {
			s += " "
		}
		if c.Present {
			s += fmt.Sprintf("%s=%d", c.Cell, c.Value)
		} else {
			s += c.Cell + "=<absent>"
		}
	}
	return s + "]"
}
