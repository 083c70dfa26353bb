package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stanza/internal/config"
	"github.com/roach88/stanza/internal/engine"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/runner"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Flags *config.Flags

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Process a statement file",
		Long: `Process every statement of a stanza or DIMACS file.

Responses are written to stdout and diagnostics to stderr. Without a
file, or with "-", the input is read from stdin and --lang is required.
Flags override the values of the --config file.

Exit codes:
  0   - All statements processed
  1   - Generic error (file not found, unknown language)
  2   - Command error (invalid flags or configuration)
  3   - Parse error
  4   - Typing error (unbound identifier, fatal warning)
  5   - Time or memory limit reached
  6   - Interrupted
  125 - Internal failure

Example:
  stanza run problem.stz
  stanza run --time 30s --size 512MiB --warn shadowing=fatal problem.stz
  stanza run --lang dimacs --db ./journal.db < clauses.cnf`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runInput(opts, input, cmd)
		},
	}

	opts.Flags = config.BindFlags(cmd.Flags())

	return cmd
}

func runInput(opts *RunOptions, input string, cmd *cobra.Command) error {
	cfg, err := opts.Flags.Resolve(input)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.Debug && !opts.Verbose {
		setupLogging(cmd.ErrOrStderr(), true)
	}

	// Interrupts fail the current statement instead of killing the process,
	// so the run ends with a diagnostic and a flushed journal.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	slog.Debug("run configured", "input", cfg.Input, "time", config.FormatTime(cfg.Time), "size", config.FormatSize(cfg.Size), "db", cfg.DB)
	streams := runner.Streams{
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := runner.Run(ctx, cfg, streams, runner.Options{
		RunIDs:     opts.RunIDs,
		Interrupts: sigChan,
	})
	if err != nil {
		if report.IsExit(err) {
			// Already printed as a diagnostic.
			return err
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	slog.Debug("run complete", "run_id", res.RunID, "succeeded", res.Succeeded, "failed", res.Failed)
	if opts.Verbose && res.Failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d statement(s) failed and were skipped\n", res.Failed)
	}
	return nil
}
