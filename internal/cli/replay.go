package cli

import (
	"context"
	"fmt"
	"io"
	"maps"

	"github.com/spf13/cobra"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/runtime"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

// ReplayResult is the outcome of replaying the database history.
type ReplayResult struct {
	Blocks        int                `json:"blocks"`
	Extrinsics    int                `json:"extrinsics"`
	Mismatches    []runtime.Mismatch `json:"mismatches"`
	CellsMatch    bool               `json:"cells_match"`
	StoredCells   map[string]any     `json:"stored_cells"`
	ReplayedCells map[string]any     `json:"replayed_cells"`
	Deterministic bool               `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Re-execute the recorded history and verify determinism",
		Long: `Re-execute every recorded extrinsic, oldest first, on fresh memory cells
and compare outcome, change set, events and declared weight with the record.
The replayed cells must also equal the committed cells.

Exit codes:
  0 - History reproduced exactly
  1 - Divergence detected
  2 - Command error (database not found, etc.)

Examples:
  palletctl replay --db ./pallet.db
  palletctl replay --db ./pallet.db --weights ./weights.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runReplay(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	table, err := opts.weightTable()
	if err != nil {
		return err
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	// Only the pallet writes cells, so every history starts from empty cells.
	report, err := runtime.Replay(ctx, st, nil, table)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay history", err)
	}
	stored, err := st.LoadCells(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load cells", err)
	}

	result := ReplayResult{
		Blocks:        report.Blocks,
		Extrinsics:    report.Extrinsics,
		Mismatches:    report.Mismatches,
		CellsMatch:    maps.Equal(stored, report.FinalCells),
		StoredCells:   cellsView(stored),
		ReplayedCells: cellsView(report.FinalCells),
	}
	result.Deterministic = report.Deterministic() && result.CellsMatch

	text := func(w io.Writer) {
		fmt.Fprintf(w, "Replayed %d extrinsic(s) in %d block(s)\n", result.Extrinsics, result.Blocks)
		for _, m := range result.Mismatches {
			fmt.Fprintf(w, "  ✗ block %d #%d %s: recorded %s, replayed %s\n",
				m.Block, m.Index, m.Field, m.Recorded, m.Replayed)
		}
		if !result.CellsMatch {
			fmt.Fprintln(w, "  ✗ committed cells differ from replayed cells")
			writeCellsIndented(w, "committed", stored)
			writeCellsIndented(w, "replayed", report.FinalCells)
		}
		if result.Deterministic {
			fmt.Fprintln(w, "✓ Deterministic")
		}
	}

	out := opts.formatter(cmd)
	if !result.Deterministic {
		msg := fmt.Sprintf("%d mismatch(es), cells match: %t", len(result.Mismatches), result.CellsMatch)
		if err := out.Failure(result, CodeNondetermined, msg, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay is not deterministic")
	}
	return out.Success(result, text)
}

func writeCellsIndented(w io.Writer, label string, cells map[state.Cell]uint32) {
	fmt.Fprintf(w, "    %s:", label)
	for _, c := range state.AllCells {
		if v, ok := cells[c]; ok {
			fmt.Fprintf(w, " %s=%d", c, v)
		} else {
			fmt.Fprintf(w, " %s=<absent>", c)
		}
	}
	fmt.Fprintln(w)
}
