package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/engine"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	CloseTime uint32
	NoClose   bool
}

// PassSummary reports one close pass.
type PassSummary struct {
	Token   string `json:"token"`
	Pass    int    `json:"pass"`
	Applied int    `json:"applied"`
	Retried int    `json:"retried"`
	Failed  int    `json:"failed"`
}

// ApplyResult holds the submissions and, unless skipped, the close.
type ApplyResult struct {
	Submitted []OutcomeResult `json:"submitted"`
	Ledger    uint32          `json:"ledger,omitempty"`
	StateHash string          `json:"state_hash,omitempty"`
	Passes    []PassSummary   `json:"passes,omitempty"`
	Final     []OutcomeResult `json:"final,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <batch.yaml>",
		Short: "Submit a batch and close the ledger",
		Long: `Submit every transaction in a batch to the open ledger, then close it.
The close re-applies the held transactions in canonical order, retrying
those that may succeed later, and journals each pass and the new ledger.

The close time is taken from --close-time, then the batch file, then the
previous close time plus ten seconds.

Example:
  txgate apply --db ./txgate.db payments.yaml
  txgate apply --db ./txgate.db payments.yaml --format json --api-version 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.CloseTime, "close-time", 0, "close time in seconds")
	cmd.Flags().BoolVar(&opts.NoClose, "no-close", false, "submit only; held transactions are discarded")

	return cmd
}

func runApply(opts *ApplyOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	batch, err := LoadBatch(path)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	txs, err := batch.build(s.engine.LastClosed(), opts.Config.BaseFee)
	if err != nil {
		return err
	}

	result := ApplyResult{}
	for _, b := range txs {
		o, err := s.engine.Submit(ctx, b.tx, b.flags)
		if err != nil {
			return WrapExitError(ExitCommandError, "submit failed", err)
		}
		result.Submitted = append(result.Submitted, outcomeResult(o, b.tx, opts.APIVersion))
	}

	f := newFormatter(opts.RootOptions, cmd)
	if opts.NoClose {
		return f.Success(result, func(w io.Writer) { writeSubmitted(w, result) })
	}

	closeTime := opts.CloseTime
	if closeTime == 0 {
		closeTime = batch.CloseTime
	}
	if closeTime == 0 {
		closeTime = s.record.CloseTime + 10
	}
	res, err := s.engine.Close(ctx, closeTime)
	if err != nil {
		return WrapExitError(ExitCommandError, "close failed", err)
	}

	result.Ledger = res.Ledger.Seq()
	result.StateHash = res.Ledger.StateHash().String()
	for _, p := range res.Passes {
		result.Passes = append(result.Passes, PassSummary{
			Token: p.Token, Pass: p.Pass, Applied: p.Applied, Retried: p.Retried, Failed: p.Failed,
		})
	}
	for _, b := range txs {
		if o, ok := res.Final(b.tx.ID()); ok {
			result.Final = append(result.Final, outcomeResult(o, b.tx, opts.APIVersion))
		}
	}

	return f.Success(result, func(w io.Writer) {
		writeSubmitted(w, result)
		writeClose(w, result, res)
	})
}

func writeSubmitted(w io.Writer, result ApplyResult) {
	fmt.Fprintln(w, "Submitted:")
	for i, r := range result.Submitted {
		writeOutcome(w, i, r)
	}
}

func writeClose(w io.Writer, result ApplyResult, res *engine.CloseResult) {
	fmt.Fprintf(w, "\nLedger %d closed at %d (%d passes)\n", result.Ledger, res.CloseTime, len(result.Passes))
	for _, p := range result.Passes {
		fmt.Fprintf(w, "  pass %d [%s]: %d applied, %d retried, %d failed\n", p.Pass, p.Token, p.Applied, p.Retried, p.Failed)
	}
	fmt.Fprintln(w, "Final:")
	for i, r := range result.Final {
		writeOutcome(w, i, r)
	}
	fmt.Fprintf(w, "State hash: %s\n", result.StateHash)
}
