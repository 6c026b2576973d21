package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Block uint64
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List stored events in emission order",
		Long: `List the events deposited by committed calls, ordered by their logical
clock. Calls aborted as unrecoverable leave no events.

Examples:
  palletctl events
  palletctl events --block 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Block, "block", 0, "only events of this block (0 = all)")

	return cmd
}

func runEvents(ctx context.Context, opts *EventsOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stored, err := st.Events(ctx, opts.Block)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	views := make([]EventView, 0, len(stored))
	for _, be := range stored {
		view, err := newEventView(be.EventRecord)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render event", err)
		}
		view.Block = be.Block
		view.ExtrinsicID = be.ExtrinsicID
		view.Call = be.Call
		views = append(views, view)
	}

	return opts.formatter(cmd).Success(views, func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No events found.")
			return
		}
		for _, v := range views {
			fmt.Fprintf(w, "#%d block %d %s: %s %s\n", v.Seq, v.Block, v.Call, v.Kind, formatArgs(v.Payload))
		}
	})
}
