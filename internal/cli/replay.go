package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/store"
	"github.com/roach88/txgate/internal/tx"
	"github.com/roach88/txgate/internal/validity"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	From uint32
	To   uint32
}

// ReplayLedgerResult holds the replay result for a single ledger.
type ReplayLedgerResult struct {
	Seq           uint32   `json:"seq"`
	Transactions  int      `json:"transactions"`
	Expected      string   `json:"expected_state_hash"`
	Actual        string   `json:"actual_state_hash"`
	Deterministic bool     `json:"deterministic"`
	Mismatches    []string `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Ledgers          []ReplayLedgerResult `json:"ledgers"`
	Total            int                  `json:"total"`
	AllDeterministic bool                 `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-apply journaled ledgers and verify determinism",
		Long: `Rebuild each journaled ledger from its parent's snapshot by re-applying
the transactions the journal records as applied, in the order they were
applied, and compare results and state hashes with the journal.

Exit codes:
  0 - Every ledger replayed identically
  1 - A result or state hash differed
  2 - Command error (journal not found, etc.)

Examples:
  txgate replay --db ./txgate.db
  txgate replay --db ./txgate.db --from 3 --to 5 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.From, "from", 2, "first ledger to replay")
	cmd.Flags().Uint32Var(&opts.To, "to", 0, "last ledger to replay (default latest)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := openStore(opts.Config, true)
	if err != nil {
		return err
	}
	defer st.Close()

	latest, err := st.LatestLedger(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	to := opts.To
	if to == 0 || to > latest.Seq {
		to = latest.Seq
	}
	from := max(opts.From, 2)

	a := app.New(opts.Config, app.WithLogger(opts.Logger))
	result := ReplayResult{Ledgers: []ReplayLedgerResult{}, AllDeterministic: true}
	for seq := from; seq <= to; seq++ {
		lr, err := replayLedger(ctx, a, st, seq)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay ledger %d", seq), err)
		}
		result.Ledgers = append(result.Ledgers, lr)
		if !lr.Deterministic {
			result.AllDeterministic = false
		}
	}
	result.Total = len(result.Ledgers)

	f := newFormatter(opts.RootOptions, cmd)
	text := func(w io.Writer) {
		if result.Total == 0 {
			fmt.Fprintln(w, "No closed ledgers to replay.")
			return
		}
		for _, lr := range result.Ledgers {
			mark := "✓"
			if !lr.Deterministic {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s ledger %d (%d transactions)\n", mark, lr.Seq, lr.Transactions)
			for _, m := range lr.Mismatches {
				fmt.Fprintf(w, "  %s\n", m)
			}
		}
		fmt.Fprintf(w, "\nReplayed %d ledger(s)\n", result.Total)
	}
	if !result.AllDeterministic {
		return f.Failure("E_REPLAY_MISMATCH", "replay diverged from the journal", result, text)
	}
	return f.Success(result, text)
}

// replayLedger rebuilds ledger seq on top of the journaled snapshot of its
// parent. Journaled transactions already passed the local checks when they
// were applied, so their verdict is seeded into the validity cache.
func replayLedger(ctx context.Context, a *app.Application, st *store.Store, seq uint32) (ReplayLedgerResult, error) {
	rec, err := st.ReadLedger(ctx, seq)
	if err != nil {
		return ReplayLedgerResult{}, err
	}
	parent, err := st.ReadLedger(ctx, seq-1)
	if err != nil {
		return ReplayLedgerResult{}, err
	}
	entries, err := st.LoadEntries(ctx, parent.Seq)
	if err != nil {
		return ReplayLedgerResult{}, err
	}
	base := ledger.New(parent.Seq, a.Config.Fees())
	base.SetParentCloseTime(parent.ParentCloseTime)
	for _, e := range entries {
		base.Put(e)
	}
	building := base.Successor(parent.CloseTime)
	building.SetOpen(false)

	results, err := st.ReadLedgerResults(ctx, seq)
	if err != nil {
		return ReplayLedgerResult{}, err
	}

	lr := ReplayLedgerResult{Seq: seq, Expected: rec.StateHash.String()}
	for _, r := range results {
		if !r.Applied {
			continue
		}
		t, err := r.Tx()
		if err != nil {
			return ReplayLedgerResult{}, fmt.Errorf("decode %s: %w", r.TxID, err)
		}
		validity.ForceValidity(a.Validity, t.ID(), validity.Valid)
		code, applied := tx.Apply(a, building, t, tx.TapNone, a.Logger)
		if code != r.Result || !applied {
			lr.Mismatches = append(lr.Mismatches, fmt.Sprintf("%s: journal %s, replay %s (applied=%t)",
				r.TxID, r.Result.Token(), code.Token(), applied))
		}
	}

	lr.Transactions = len(building.Transactions())
	lr.Actual = building.StateHash().String()
	if lr.Transactions != rec.TxCount {
		lr.Mismatches = append(lr.Mismatches, fmt.Sprintf("transactions: journal %d, replay %d", rec.TxCount, lr.Transactions))
	}
	if lr.Actual != lr.Expected {
		lr.Mismatches = append(lr.Mismatches, fmt.Sprintf("state hash: journal %s, replay %s", lr.Expected, lr.Actual))
	}
	lr.Deterministic = len(lr.Mismatches) == 0
	return lr, nil
}
