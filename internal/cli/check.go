package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/tx"
)

// CheckResult holds the dry-run outcome of every transaction in a batch.
type CheckResult struct {
	Ledger   uint32          `json:"ledger"`
	Outcomes []OutcomeResult `json:"outcomes"`
	Rejected int             `json:"rejected"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <batch.yaml>",
		Short: "Dry-run a batch against the open ledger",
		Long: `Run every transaction in a batch through preflight, preclaim and apply
against the ledger following the last journaled one, without changing it.
Transactions see each other in file order only through their sequences.

Exit codes:
  0 - Every transaction would be applied
  1 - One or more transactions were rejected
  2 - Command error

Example:
  txgate check --db ./txgate.db payments.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	batch, err := LoadBatch(path)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	txs, err := batch.build(s.engine.LastClosed(), opts.Config.BaseFee)
	if err != nil {
		return err
	}

	result := CheckResult{Ledger: s.engine.LastClosed().Seq() + 1}
	for _, b := range txs {
		o, err := s.engine.Submit(ctx, b.tx, b.flags|tx.TapDryRun)
		if err != nil {
			return WrapExitError(ExitCommandError, "submit failed", err)
		}
		if rejected(o) {
			result.Rejected++
		}
		result.Outcomes = append(result.Outcomes, outcomeResult(o, b.tx, opts.APIVersion))
	}

	f := newFormatter(opts, cmd)
	text := func(w io.Writer) {
		for i, r := range result.Outcomes {
			writeOutcome(w, i, r)
		}
		fmt.Fprintf(w, "\n%d checked, %d rejected\n", len(result.Outcomes), result.Rejected)
	}
	if result.Rejected > 0 {
		return f.Failure("E_REJECTED", fmt.Sprintf("%d transaction(s) rejected", result.Rejected), result, text)
	}
	return f.Success(result, text)
}
