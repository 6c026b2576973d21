package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/harness"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/runtime"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Caller string
	Origin string
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <name> [key=value...]",
		Short: "Submit one call and build it into a block",
		Long: `Submit one call to the pallet and build a block containing it.

The call is priced with the weight table, admitted under the block weight
limit, dispatched and committed to the database. A failed dispatch is still
recorded; its outcome is the error code.

Exit codes:
  0 - Call recorded (whatever its outcome)
  1 - Call rejected for exceeding the block limit, or the block halted
  2 - Command error (bad arguments, database error, etc.)

Examples:
  palletctl call store_value value=42
  palletctl call bounded_repeat_hash times=10 --caller bob
  palletctl call increment_or_fail --origin none`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "dev account name or 0x account id (default alice)")
	cmd.Flags().StringVar(&opts.Origin, "origin", harness.OriginSigned, "origin: signed, none or root")

	return cmd
}

func runCall(ctx context.Context, opts *CallOptions, name string, pairs []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	args, err := ir.ParseCallArgs(pairs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid call arguments", err)
	}
	step := harness.CallStep{Call: name, Args: args, Origin: opts.Origin, Caller: opts.Caller}
	if err := step.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid call", err)
	}
	origin, call, err := step.Resolve()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid call", err)
	}

	st, exec, err := opts.openRuntime(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := exec.Submit(origin, call); err != nil {
		return WrapExitError(ExitCommandError, "failed to submit call", err)
	}
	res, buildErr := exec.BuildBlock(ctx)
	if buildErr != nil && !runtime.IsHalted(buildErr) {
		return WrapExitError(ExitCommandError, "failed to build block", buildErr)
	}

	view, err := newBlockView(res, buildErr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render block", err)
	}

	out := opts.formatter(cmd)
	text := func(w io.Writer) { writeBlock(w, view) }
	switch {
	case buildErr != nil:
		if err := out.Failure(view, CodeHalted, buildErr.Error(), text); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "block halted", buildErr)
	case len(view.Rejected) > 0:
		msg := fmt.Sprintf("%s rejected: %s", name, view.Rejected[0].Error)
		if err := out.Failure(view, CodeRejected, msg, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(view, text)
}
