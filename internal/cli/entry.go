package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/store"
)

// EntryOptions holds flags for the entry command.
type EntryOptions struct {
	*RootOptions
	Ledger uint32
	Type   string
}

// EntryResult holds the entries found in one ledger.
type EntryResult struct {
	Ledger  uint32 `json:"ledger"`
	Entries []any  `json:"entries"`
}

// NewEntryCommand creates the entry command.
func NewEntryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "entry [account | key]",
		Short: "Show ledger entries from the journal",
		Long: `Show one entry of a journaled ledger, either the account root of an
account (a key seed name or hex account ID) or the entry stored under a
64-digit hex key. With --type, list every entry of that type instead.

Examples:
  txgate entry alice
  txgate entry --ledger 3 5E7B112523F68D2F5E879DB4EAC51C6698A69304
  txgate entry --type Check --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntry(opts, args, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.Ledger, "ledger", 0, "ledger sequence (default latest)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "list entries of this type, e.g. Ticket")

	return cmd
}

func runEntry(opts *EntryOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if (len(args) == 0) == (opts.Type == "") {
		return NewExitError(ExitCommandError, "give exactly one of an account or key, or --type")
	}

	st, err := openStore(opts.Config, true)
	if err != nil {
		return err
	}
	defer st.Close()

	seq := opts.Ledger
	if seq == 0 {
		rec, err := st.LatestLedger(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		seq = rec.Seq
	} else if _, err := st.ReadLedger(ctx, seq); errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("ledger %d is not in the journal", seq))
	}

	var entries []*protocol.LedgerEntry
	if opts.Type != "" {
		ef, ok := protocol.DefaultFormats().EntryByName(opts.Type)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown entry type %q", opts.Type))
		}
		if entries, err = st.LoadEntriesOfType(ctx, seq, ef.Type); err != nil {
			return WrapExitError(ExitCommandError, "failed to load entries", err)
		}
	} else {
		all, err := st.LoadEntries(ctx, seq)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load entries", err)
		}
		key := entryKey(args[0])
		for _, e := range all {
			if e.Key() == key {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("no entry for %s in ledger %d", args[0], seq))
		}
	}

	result := EntryResult{Ledger: seq, Entries: make([]any, len(entries))}
	for i, e := range entries {
		result.Entries[i] = e.JSONValue()
	}
	return newFormatter(opts.RootOptions, cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Ledger %d:\n", seq)
		for _, e := range entries {
			if opts.Verbose {
				fmt.Fprintln(w, e.FullText())
			} else {
				fmt.Fprintln(w, e.Text())
			}
		}
	})
}

// entryKey reads a hex key, or else the account root key of an account.
func entryKey(s string) protocol.Hash256 {
	if key, err := protocol.ParseHash256(s); err == nil {
		return key
	}
	return protocol.AccountKeylet(accountID(s)).Key
}
