package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/harness"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/runtime"
)

// CallFile is the YAML document read by the block command.
type CallFile struct {
	Calls []harness.CallStep `yaml:"calls"`
}

// BlockRunResult is every block built from one call file.
type BlockRunResult struct {
	Blocks   []BlockView `json:"blocks"`
	Halted   int         `json:"halted"`
	Rejected int         `json:"rejected"`
}

// NewBlockCommand creates the block command.
func NewBlockCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block <calls.yaml>",
		Short: "Submit a file of calls and build blocks until the pool is empty",
		Long: `Submit every call of a YAML file in order and build blocks until all of
them are applied or rejected.

Calls that do not fit the remaining block weight move to the next block.
A halted block ends at the aborted call; the remaining calls go on in the
next block.

File format:
  calls:
    - call: store_value
      args: {value: 42}
    - call: transactional_sum
      args: {val: 1}
      caller: bob

Exit codes:
  0 - Every call recorded
  1 - A call was rejected or a block halted
  2 - Command error (bad file, database error, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlock(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
	return cmd
}

// LoadCallFile reads and validates a call file. Expectations are not
// allowed; use a scenario for those.
func LoadCallFile(path string) (*CallFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read call file: %w", err)
	}
	var file CallFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Calls) == 0 {
		return nil, fmt.Errorf("calls list is required and must be non-empty")
	}
	for i, step := range file.Calls {
		if step.Expect != "" {
			return nil, fmt.Errorf("calls[%d]: expect is only valid in scenarios", i)
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("calls[%d]: %w", i, err)
		}
	}
	return &file, nil
}

func runBlock(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := LoadCallFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid call file", err)
	}

	st, exec, err := opts.openRuntime(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	for i, step := range file.Calls {
		origin, call, err := step.Resolve()
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("calls[%d]", i), err)
		}
		if err := exec.Submit(origin, call); err != nil {
			return WrapExitError(ExitCommandError, "failed to submit call", err)
		}
	}

	result := BlockRunResult{Blocks: []BlockView{}}
	for exec.Pending() > 0 {
		res, buildErr := exec.BuildBlock(ctx)
		if buildErr != nil && !runtime.IsHalted(buildErr) {
			return WrapExitError(ExitCommandError, "failed to build block", buildErr)
		}
		view, err := newBlockView(res, buildErr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render block", err)
		}
		result.Blocks = append(result.Blocks, view)
		result.Rejected += len(view.Rejected)
		if buildErr != nil {
			result.Halted++
		}
		if len(res.Applied) == 0 && len(res.Rejected) == 0 {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("block %d made no progress with %d pending", view.Number, exec.Pending()))
		}
	}

	out := opts.formatter(cmd)
	text := func(w io.Writer) {
		for _, b := range result.Blocks {
			writeBlock(w, b)
		}
	}
	if result.Halted > 0 || result.Rejected > 0 {
		msg := fmt.Sprintf("%d block(s) halted, %d call(s) rejected", result.Halted, result.Rejected)
		code := CodeRejected
		if result.Halted > 0 {
			code = CodeHalted
		}
		if err := out.Failure(result, code, msg, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(result, text)
}
