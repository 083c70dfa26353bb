package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stanza/internal/analysis"
	"github.com/roach88/stanza/internal/config"
	"github.com/roach88/stanza/internal/report"
)

// Validation error codes.
const (
	ErrCodeConfig   = "E_CONFIG"
	ErrCodeLanguage = "E_LANGUAGE"
	ErrCodeRead     = "E_READ"
	ErrCodeParse    = "E_PARSE"
	ErrCodeInclude  = "E_INCLUDE"
	ErrCodeCycle    = "E_INCLUDE_CYCLE"
)

// ValidationError is one problem found by validate.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Statements int               `json:"statements"`
	Errors     []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var flags *config.Flags

	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check configuration and input syntax without running",
		Long: `Check the run configuration and the syntax of input files.

Takes the same flags as run. Every flag value and the --config file are
validated; each file and every file it includes is parsed, includes
must resolve, and include cycles are reported. Nothing is processed and
no journal is written. Faster than run for editing feedback.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, flags, args, cmd)
		},
	}

	flags = config.BindFlags(cmd.Flags())

	return cmd
}

func runValidate(opts *RootOptions, flags *config.Flags, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := flags.Resolve("")
	if err != nil {
		return outputValidationErrors(formatter, 0, []ValidationError{configError(err)})
	}
	formatter.VerboseLog("Configuration valid: time=%s size=%s max-warn=%d style=%s",
		config.FormatTime(cfg.Time), config.FormatSize(cfg.Size), cfg.MaxWarnings, cfg.Style)

	var (
		errs       []ValidationError
		statements int
	)
	for _, file := range files {
		n, fileErrs := validateFile(cfg, file)
		formatter.VerboseLog("Parsed %s: %d statement(s)", file, n)
		statements += n
		errs = append(errs, fileErrs...)
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, statements, errs)
	}
	return outputValidateSuccess(formatter, len(files), statements)
}

// validateFile parses an input file and every file it includes, and
// reports unresolved includes and include cycles. It returns the number of
// statements of the file itself.
func validateFile(cfg config.Config, file string) (int, []ValidationError) {
	g, problems := analysis.Build(file, cfg.Lang, cfg.IncludeDirs)

	var errs []ValidationError
	for _, p := range problems {
		errs = append(errs, locatedError(problemCodes[p.Kind], p.Loc, p.Message))
	}
	for _, c := range analysis.Cycles(g) {
		errs = append(errs, locatedError(ErrCodeCycle, c.Loc, c.Message))
	}

	statements := 0
	if root, ok := g.Files[g.Root]; ok {
		statements = root.Statements
	}
	return statements, errs
}

var problemCodes = map[analysis.ProblemKind]string{
	analysis.ProblemLanguage: ErrCodeLanguage,
	analysis.ProblemRead:     ErrCodeRead,
	analysis.ProblemParse:    ErrCodeParse,
	analysis.ProblemMissing:  ErrCodeInclude,
}

func locatedError(code string, loc report.Loc, msg string) ValidationError {
	return ValidationError{
		File:    loc.File,
		Line:    loc.StartLine,
		Column:  loc.StartCol,
		Code:    code,
		Message: msg,
	}
}

// configError positions a configuration error in the CUE file when known.
func configError(err error) ValidationError {
	ve := ValidationError{Code: ErrCodeConfig, Message: err.Error()}
	var ce *config.Error
	if errors.As(err, &ce) && ce.Pos.IsValid() {
		ve.File = ce.Pos.Filename()
		ve.Line = ce.Pos.Line()
		ve.Column = ce.Pos.Column()
	}
	return ve
}

// outputValidateSuccess outputs the success message.
func outputValidateSuccess(formatter *OutputFormatter, files, statements int) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true, Statements: statements}
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Configuration valid, %d file(s) with %d statement(s) parsed\n", files, statements)
	return nil
}

// outputValidationErrors reports every problem found; the first one is the
// JSON error.
func outputValidationErrors(formatter *OutputFormatter, statements int, errs []ValidationError) error {
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Statements: statements, Errors: errs}
		if err := formatter.Failure(result, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	formatter.Diagnostics(errs)
	return failed
}
