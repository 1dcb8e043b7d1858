package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/config"
)

// RootOptions holds global flags and the settings every command shares.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string

	// APIVersion selects the transaction JSON rendering; from 2 on, a
	// Payment's Amount is reported only as DeliverMax.
	APIVersion uint

	// Config is loaded from the environment before any command runs;
	// flags that were set explicitly override it.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the txgate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "txgate",
		Short: "txgate - transaction admission and ledger close pipeline",
		Long: `txgate checks, applies and journals ledger transactions.

Transactions pass preflight, preclaim and apply against an open ledger and
are re-applied in canonical order when the ledger closes. Every close pass
and its outcomes are journaled to SQLite.

Settings come from TXGATE_* environment variables; flags override them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.APIVersion < 1 || opts.APIVersion > 2 {
				return fmt.Errorf("invalid api version %d: must be 1 or 2", opts.APIVersion)
			}
			return opts.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite journal (default $TXGATE_DB)")
	cmd.PersistentFlags().UintVar(&opts.APIVersion, "api-version", 1, "transaction JSON API version (1|2)")

	cmd.AddCommand(NewFormatsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewEntryCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load reads the environment, applies flag overrides and installs the
// process logger on stderr.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.DB != "" {
		cfg.DB = o.DB
	}
	o.Config = cfg

	level := cfg.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.Logger)
	return nil
}
