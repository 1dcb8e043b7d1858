package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/protocol"
)

// FormatsOptions holds flags for the formats command.
type FormatsOptions struct {
	*RootOptions
	File string
}

// FieldInfo is one template element.
type FieldInfo struct {
	Name  string `json:"name"`
	Style string `json:"style"`
}

// FormatInfo describes one entry or transaction format.
type FormatInfo struct {
	Name      string      `json:"name"`
	Code      uint16      `json:"code"`
	Threading string      `json:"threading,omitempty"`
	Pseudo    bool        `json:"pseudo,omitempty"`
	Fields    []FieldInfo `json:"fields"`
}

// FormatsResult lists a registry.
type FormatsResult struct {
	LedgerEntries []FormatInfo `json:"ledger_entries"`
	Transactions  []FormatInfo `json:"transactions"`
}

// NewFormatsCommand creates the formats command.
func NewFormatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List ledger entry and transaction formats",
		Long: `List the ledger entry and transaction formats of the built-in registry,
or of a CUE formats file given with --file. With --verbose, every field
and its style is listed too.

Examples:
  txgate formats
  txgate formats --file ./formats.cue --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "CUE formats file (default built-in)")

	return cmd
}

func runFormats(opts *FormatsOptions, cmd *cobra.Command) error {
	registry := protocol.DefaultFormats()
	if opts.File != "" {
		f, err := loadFormatsFile(opts.File)
		if err != nil {
			return err
		}
		registry = f
	}

	result := describeFormats(registry)
	return newFormatter(opts.RootOptions, cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Ledger entries (%d):\n", len(result.LedgerEntries))
		for _, e := range result.LedgerEntries {
			fmt.Fprintf(w, "  0x%04x %-20s threading=%s\n", e.Code, e.Name, e.Threading)
			writeFields(w, e.Fields, opts.Verbose)
		}
		fmt.Fprintf(w, "Transactions (%d):\n", len(result.Transactions))
		for _, t := range result.Transactions {
			pseudo := ""
			if t.Pseudo {
				pseudo = " (pseudo)"
			}
			fmt.Fprintf(w, "  %6d %s%s\n", t.Code, t.Name, pseudo)
			writeFields(w, t.Fields, opts.Verbose)
		}
	})
}

func loadFormatsFile(path string) (*protocol.Formats, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read formats file", err)
	}
	f, err := protocol.LoadFormats(src)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "invalid formats file", err)
	}
	return f, nil
}

func describeFormats(f *protocol.Formats) FormatsResult {
	result := FormatsResult{}
	for _, e := range f.Entries() {
		result.LedgerEntries = append(result.LedgerEntries, FormatInfo{
			Name:      e.Name,
			Code:      uint16(e.Type),
			Threading: string(e.Threading),
			Fields:    fieldInfos(e.Template),
		})
	}
	for _, t := range f.Transactions() {
		result.Transactions = append(result.Transactions, FormatInfo{
			Name:   t.Name,
			Code:   uint16(t.Type),
			Pseudo: t.Pseudo,
			Fields: fieldInfos(t.Template),
		})
	}
	return result
}

func fieldInfos(t *protocol.Template) []FieldInfo {
	elems := t.Elements()
	out := make([]FieldInfo, len(elems))
	for i, el := range elems {
		out[i] = FieldInfo{Name: el.Field.Name, Style: el.Style.String()}
	}
	return out
}

func writeFields(w io.Writer, fields []FieldInfo, verbose bool) {
	if !verbose {
		return
	}
	for _, f := range fields {
		fmt.Fprintf(w, "           %-24s %s\n", f.Name, f.Style)
	}
}
