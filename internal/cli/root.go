package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/config"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/runtime"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/store"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/weights"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose          bool
	Format           string // "json" | "text"
	DB               string
	WeightsFile      string
	BlockWeightLimit uint64

	// Logger is set up before any subcommand runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of palletctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "palletctl",
		Version: ir.RuntimeVersion,
		Short:   "palletctl - drive the metered template pallet",
		Long: `Submit calls to the metered template pallet, build blocks under a weight
limit, inspect the stored cells and events, replay the recorded history and
run YAML scenarios.

Flags override the environment: PALLET_DB, PALLET_WEIGHTS_FILE,
PALLET_BLOCK_WEIGHT_LIMIT, PALLET_LOG_LEVEL and PALLET_LOG_NO_COLOR.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.applyEnv(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database (env PALLET_DB, default pallet.db)")
	cmd.PersistentFlags().StringVar(&opts.WeightsFile, "weights", "", "CUE weight table overriding the defaults (env PALLET_WEIGHTS_FILE)")
	cmd.PersistentFlags().Uint64Var(&opts.BlockWeightLimit, "block-weight-limit", 0, "declared weight budget per block (env PALLET_BLOCK_WEIGHT_LIMIT)")

	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewBlockCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewWeightCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyEnv fills every flag the user did not set from the environment and
// builds the logger.
func (o *RootOptions) applyEnv(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("db") {
		o.DB = cfg.DB
	}
	if !flags.Changed("weights") {
		o.WeightsFile = cfg.WeightsFile
	}
	if !flags.Changed("block-weight-limit") {
		o.BlockWeightLimit = cfg.BlockWeightLimit
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = config.NewLogger(cmd.ErrOrStderr(), level, cfg.LogNoColor)
	return nil
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// weightTable returns the weight table from --weights, or the defaults.
func (o *RootOptions) weightTable() (weights.Table, error) {
	if o.WeightsFile == "" {
		return weights.DefaultTable(), nil
	}
	table, err := weights.LoadFile(o.WeightsFile)
	if err != nil {
		return weights.Table{}, WrapExitError(ExitCommandError, "failed to load weight table", err)
	}
	return table, nil
}

func (o *RootOptions) openStore() (*store.Store, error) {
	if o.DB == "" {
		return nil, NewExitError(ExitCommandError, "no database: set --db or PALLET_DB")
	}
	st, err := store.Open(o.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// openRuntime opens the database and starts an executor on top of it.
// The caller closes the store.
func (o *RootOptions) openRuntime(ctx context.Context) (*store.Store, *runtime.Executor, error) {
	table, err := o.weightTable()
	if err != nil {
		return nil, nil, err
	}
	st, err := o.openStore()
	if err != nil {
		return nil, nil, err
	}

	execOpts := []runtime.Option{runtime.WithLogger(o.logger())}
	if o.BlockWeightLimit > 0 {
		execOpts = append(execOpts, runtime.WithBlockWeightLimit(weights.Weight(o.BlockWeightLimit)))
	}
	exec, err := runtime.New(ctx, st, table, execOpts...)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to start runtime", err)
	}
	return st, exec, nil
}
