package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/weights"
)

// WeightEntry is one row of the weight table.
type WeightEntry struct {
	Call    string `json:"call"`
	Base    uint64 `json:"base"`
	PerItem uint64 `json:"per_item,omitempty"`
	Reads   uint64 `json:"reads"`
	Writes  uint64 `json:"writes"`
}

// WeightTableResult is the weight table in effect.
type WeightTableResult struct {
	DBRead  uint64        `json:"db_read"`
	DBWrite uint64        `json:"db_write"`
	Calls   []WeightEntry `json:"calls"`
}

// WeightCostResult is the declared weight of one call.
type WeightCostResult struct {
	Call   string         `json:"call"`
	Args   map[string]any `json:"args"`
	Weight uint64         `json:"weight"`
}

// NewWeightCommand creates the weight command.
func NewWeightCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "weight [name [key=value...]]",
		Short: "Show the weight table or the declared weight of a call",
		Long: `Without arguments, print the weight table in effect (defaults, or the
file given by --weights). With a call, print the weight the block scheduler
would charge for it.

Examples:
  palletctl weight
  palletctl weight bounded_repeat_hash times=100
  palletctl weight --weights ./weights.cue store_value value=1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := rootOpts.weightTable()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return showWeightTable(rootOpts, table, cmd)
			}
			return showWeightCost(rootOpts, table, args[0], args[1:], cmd)
		},
	}
}

func showWeightTable(opts *RootOptions, table weights.Table, cmd *cobra.Command) error {
	result := WeightTableResult{
		DBRead:  uint64(table.DB.Read),
		DBWrite: uint64(table.DB.Write),
	}
	for _, name := range ir.CallNames() {
		e, ok := table.Entries[name]
		if !ok {
			continue
		}
		result.Calls = append(result.Calls, WeightEntry{
			Call:    name,
			Base:    uint64(e.Base),
			PerItem: uint64(e.PerItem),
			Reads:   e.Reads,
			Writes:  e.Writes,
		})
	}

	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "db read %d, db write %d\n", result.DBRead, result.DBWrite)
		for _, e := range result.Calls {
			fmt.Fprintf(w, "%-22s base %d", e.Call, e.Base)
			if e.PerItem > 0 {
				fmt.Fprintf(w, " + %d/item", e.PerItem)
			}
			fmt.Fprintf(w, " reads %d writes %d\n", e.Reads, e.Writes)
		}
	})
}

func showWeightCost(opts *RootOptions, table weights.Table, name string, pairs []string, cmd *cobra.Command) error {
	args, err := ir.ParseCallArgs(pairs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid call arguments", err)
	}
	call, err := ir.DecodeCall(name, args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid call", err)
	}
	_, encoded, err := ir.EncodeCall(call)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid call", err)
	}

	result := WeightCostResult{Call: name, Args: encoded, Weight: uint64(table.Cost(call))}
	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s: %d\n", name, formatArgs(encoded), result.Weight)
	})
}
