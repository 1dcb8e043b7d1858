package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/engine"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/store"
)

// GenesisAccountResult names one funded account.
type GenesisAccountResult struct {
	Name    string `json:"name"`
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// InitResult describes the journaled genesis ledger.
type InitResult struct {
	Ledger    uint32                 `json:"ledger"`
	StateHash string                 `json:"state_hash"`
	Accounts  []GenesisAccountResult `json:"accounts"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init <genesis.yaml>",
		Short: "Create a journal with a genesis ledger",
		Long: `Create a new journal whose first ledger funds the accounts in a
genesis file. Fees come from TXGATE_BASE_FEE, TXGATE_RESERVE_BASE and
TXGATE_RESERVE_INCREMENT; amendments from the file and TXGATE_AMENDMENTS.

Example:
  txgate init --db ./txgate.db genesis.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, args[0], cmd)
		},
	}
}

func runInit(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	g, err := LoadGenesis(path)
	if err != nil {
		return err
	}

	cfg := opts.Config
	cfg.Amendments = append(append([]string(nil), cfg.Amendments...), g.Amendments...)
	rules, err := cfg.Rules()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid amendments", err)
	}
	names, accounts := g.accounts()
	genesis, err := ledger.Genesis(cfg.Fees(), rules, accounts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid genesis", err)
	}

	st, err := store.Open(cfg.DB, store.WithBusyTimeout(cfg.DBBusyTimeout))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if rec, err := st.LatestLedger(ctx); err == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal %s already holds ledger %d", cfg.DB, rec.Seq))
	} else if !errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	eng := engine.New(app.New(cfg, app.WithLogger(opts.Logger)), genesis, g.CloseTime, engine.WithStore(st))
	if err := eng.Checkpoint(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to journal genesis", err)
	}
	opts.Logger.Info("journal initialised", "db", cfg.DB, "accounts", len(accounts))

	result := InitResult{Ledger: genesis.Seq(), StateHash: genesis.StateHash().String()}
	for i, acct := range accounts {
		result.Accounts = append(result.Accounts, GenesisAccountResult{
			Name:    names[i],
			Account: acct.ID.String(),
			Balance: int64(acct.Balance),
		})
	}
	return newFormatter(opts, cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Genesis ledger %d written to %s\n", result.Ledger, cfg.DB)
		for _, a := range result.Accounts {
			fmt.Fprintf(w, "  %-12s %s %d\n", a.Name, a.Account, a.Balance)
		}
		fmt.Fprintf(w, "State hash: %s\n", result.StateHash)
	})
}
