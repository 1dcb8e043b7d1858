package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/store"
)

// LedgerPass is one close pass with the outcomes it recorded.
type LedgerPass struct {
	Token    string          `json:"token"`
	Pass     int             `json:"pass"`
	Seq      int64           `json:"seq"`
	Applied  int             `json:"applied"`
	Retried  int             `json:"retried"`
	Failed   int             `json:"failed"`
	Outcomes []HistoryRecord `json:"outcomes"`
}

// LedgerResult describes one journaled ledger and how it was closed.
type LedgerResult struct {
	Seq             uint32       `json:"seq"`
	StateHash       string       `json:"state_hash"`
	ParentCloseTime uint32       `json:"parent_close_time"`
	CloseTime       uint32       `json:"close_time"`
	TxCount         int          `json:"tx_count"`
	Passes          []LedgerPass `json:"passes"`
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger [seq]",
		Short: "Show a journaled ledger and its close passes",
		Long: `Show a journaled ledger (the latest by default) with the passes made
while closing it and every outcome each pass recorded, in clock order.

Examples:
  txgate ledger
  txgate ledger 3 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(rootOpts, args, cmd)
		},
	}
}

func runLedger(opts *RootOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := openStore(opts.Config, true)
	if err != nil {
		return err
	}
	defer st.Close()

	var rec store.LedgerRecord
	if len(args) == 1 {
		seq, perr := strconv.ParseUint(args[0], 10, 32)
		if perr != nil {
			return WrapExitError(ExitCommandError, "invalid ledger sequence", perr)
		}
		rec, err = st.ReadLedger(ctx, uint32(seq))
	} else {
		rec, err = st.LatestLedger(ctx)
	}
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitFailure, "ledger not found")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result, err := describeLedger(cmd, st, rec, opts.APIVersion)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read close passes", err)
	}

	return newFormatter(opts, cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Ledger %d\n", result.Seq)
		fmt.Fprintf(w, "  state hash:        %s\n", result.StateHash)
		fmt.Fprintf(w, "  parent close time: %d\n", result.ParentCloseTime)
		fmt.Fprintf(w, "  close time:        %d\n", result.CloseTime)
		fmt.Fprintf(w, "  transactions:      %d\n", result.TxCount)
		for _, p := range result.Passes {
			fmt.Fprintf(w, "\nPass %d [%s] at %d: %d applied, %d retried, %d failed\n",
				p.Pass, p.Token, p.Seq, p.Applied, p.Retried, p.Failed)
			for _, o := range p.Outcomes {
				fmt.Fprintf(w, "  [%d] %-16s %s %s\n", o.Seq, o.Type, truncateID(o.Hash), o.Result)
			}
		}
	})
}

func describeLedger(cmd *cobra.Command, st *store.Store, rec store.LedgerRecord, apiVersion uint) (LedgerResult, error) {
	ctx := cmd.Context()
	result := LedgerResult{
		Seq:             rec.Seq,
		StateHash:       rec.StateHash.String(),
		ParentCloseTime: rec.ParentCloseTime,
		CloseTime:       rec.CloseTime,
		TxCount:         rec.TxCount,
		Passes:          []LedgerPass{},
	}

	passes, err := st.ReadPasses(ctx, rec.Seq)
	if err != nil {
		return LedgerResult{}, err
	}
	results, err := st.ReadLedgerResults(ctx, rec.Seq)
	if err != nil {
		return LedgerResult{}, err
	}
	byPass := make(map[string][]HistoryRecord)
	for _, r := range results {
		h, err := historyRecord(r, apiVersion)
		if err != nil {
			return LedgerResult{}, err
		}
		byPass[r.PassID] = append(byPass[r.PassID], h)
	}
	for _, p := range passes {
		outcomes := byPass[p.ID]
		if outcomes == nil {
			outcomes = []HistoryRecord{}
		}
		result.Passes = append(result.Passes, LedgerPass{
			Token:    p.ID,
			Pass:     p.Pass,
			Seq:      p.Seq,
			Applied:  p.Applied,
			Retried:  p.Retried,
			Failed:   p.Failed,
			Outcomes: outcomes,
		})
	}
	return result, nil
}
