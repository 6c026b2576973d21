package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// StateResult is the committed state of the database.
type StateResult struct {
	Head  uint64         `json:"head"`
	Seq   int64          `json:"seq"`
	Cells map[string]any `json:"cells"` // null for absent cells
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the committed cells",
		Long: `Show the committed cells and the head block. Absent cells are shown as
<absent> (null in JSON); they are never defaulted to zero.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runState(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cells, err := st.LoadCells(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load cells", err)
	}
	head, seq, err := st.Head(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load head", err)
	}

	result := StateResult{Head: head, Seq: seq, Cells: cellsView(cells)}
	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "head block: %d\n", head)
		writeCells(w, cells)
	})
}
