package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Final bool
}

// HistoryRecord is one journaled outcome.
type HistoryRecord struct {
	Ledger  uint32          `json:"ledger"`
	Pass    string          `json:"pass"`
	Seq     int64           `json:"seq"`
	Hash    string          `json:"hash"`
	Type    string          `json:"type"`
	Result  string          `json:"result"`
	Applied bool            `json:"applied"`
	Tx      map[string]any  `json:"tx_json"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <account>",
		Short: "List journaled outcomes of an account's transactions",
		Long: `List every journaled outcome of transactions sent by an account, oldest
first. A transaction retried across passes appears once per pass unless
--final is given.

Examples:
  txgate history alice
  txgate history alice --final --format json --api-version 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Final, "final", false, "show only the last outcome of each transaction")

	return cmd
}

func runHistory(opts *HistoryOptions, account string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := openStore(opts.Config, true)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.ReadHistory(ctx, accountID(account))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	if opts.Final {
		recs = finalOnly(recs)
	}

	history := make([]HistoryRecord, 0, len(recs))
	for _, r := range recs {
		h, err := historyRecord(r, opts.APIVersion)
		if err != nil {
			return WrapExitError(ExitCommandError, "corrupt journal", err)
		}
		history = append(history, h)
	}

	return newFormatter(opts.RootOptions, cmd).Success(history, func(w io.Writer) {
		if len(history) == 0 {
			fmt.Fprintf(w, "No transactions from %s.\n", account)
			return
		}
		for _, h := range history {
			state := "not applied"
			if h.Applied {
				state = "applied"
			}
			fmt.Fprintf(w, "ledger %-4d seq %-4d %-16s %s %s (%s)\n",
				h.Ledger, h.Seq, h.Type, truncateID(h.Hash), h.Result, state)
		}
	})
}

// finalOnly keeps the last record of each transaction, preserving order.
func finalOnly(recs []store.ResultRecord) []store.ResultRecord {
	last := make(map[string]int, len(recs))
	for i, r := range recs {
		last[r.TxID.String()] = i
	}
	out := recs[:0:0]
	for i, r := range recs {
		if last[r.TxID.String()] == i {
			out = append(out, r)
		}
	}
	return out
}

func historyRecord(r store.ResultRecord, apiVersion uint) (HistoryRecord, error) {
	t, err := r.Tx()
	if err != nil {
		return HistoryRecord{}, fmt.Errorf("decode %s: %w", r.TxID, err)
	}
	h := HistoryRecord{
		Ledger:  r.LedgerSeq,
		Pass:    r.PassID,
		Seq:     r.Seq,
		Hash:    r.TxID.String(),
		Type:    r.TxType,
		Result:  r.Result.Token(),
		Applied: r.Applied,
		Tx:      txJSON(t, apiVersion),
	}
	if r.Meta != "" {
		h.Meta = json.RawMessage(r.Meta)
	}
	return h, nil
}
