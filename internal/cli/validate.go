package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/txgate/internal/protocol"
)

// ValidationError locates one problem in a formats file.
type ValidationError struct {
	File    string `json:"file"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <formats.cue>...",
		Short: "Validate CUE formats files",
		Long: `Compile CUE formats files into format registries and report the first
problem in each: a CUE error, an unknown field or style, a duplicate code,
or an entry type whose threading declaration disagrees with its template
and the fixPreviousTxnID exclusion list.

Exit codes:
  0 - All files are valid
  1 - One or more files are invalid
  2 - Command error (file not readable)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	result := ValidationResult{Valid: true, Files: len(files)}
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read "+file, err)
		}
		if _, err := protocol.LoadFormats(src); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, validationError(file, err))
			continue
		}
		opts.Logger.Debug("formats file valid", "file", file)
	}

	f := newFormatter(opts, cmd)
	if !result.Valid {
		return f.Failure("E_INVALID_FORMATS", fmt.Sprintf("%d invalid file(s)", len(result.Errors)), result, func(w io.Writer) {
			for _, e := range result.Errors {
				if e.Line > 0 {
					fmt.Fprintf(w, "✗ %s:%d:%d: %s\n", e.File, e.Line, e.Column, e.Message)
				} else {
					fmt.Fprintf(w, "✗ %s: %s\n", e.File, e.Message)
				}
			}
		})
	}
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d formats file(s) valid\n", result.Files)
	})
}

func validationError(file string, err error) ValidationError {
	var fe *protocol.FormatError
	if !errors.As(err, &fe) {
		return ValidationError{File: file, Message: err.Error()}
	}
	v := ValidationError{File: file, Path: fe.Path, Message: fe.Message}
	if fe.Pos.IsValid() {
		v.Line, v.Column = fe.Pos.Line(), fe.Pos.Column()
	}
	if v.Path != "" {
		v.Message = v.Path + ": " + v.Message
	}
	return v
}
