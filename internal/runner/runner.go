// Package runner wires one run of the bundled pipeline: it opens the input,
// seeds the state from a config.Config, journals every item outcome, and
// turns failures into diagnostics and exit codes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/stanza/internal/config"
	"github.com/roach88/stanza/internal/engine"
	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/logic"
	"github.com/roach88/stanza/internal/process"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/state"
	"github.com/roach88/stanza/internal/store"
)

// Streams are the process's standard streams. Responses go to Stdout and
// diagnostics to Stderr.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Options inject run dependencies. The zero value is production behavior.
type Options struct {
	// RunIDs defaults to engine.UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Clock defaults to a clock continuing after the journal's last seq.
	Clock engine.Sequencer

	// Interrupts turns received signals into interrupted failures.
	Interrupts <-chan os.Signal

	// Registry receives the run metrics. Defaults to a fresh registry.
	Registry *prometheus.Registry
}

// Result summarizes a finished run.
type Result struct {
	RunID     string
	Succeeded int
	Failed    int
	State     state.State
}

// Run processes cfg.Input. A fatal diagnostic is returned as an error
// wrapping *report.ExitError, after it has been printed.
func Run(ctx context.Context, cfg config.Config, streams Streams, opts Options) (Result, error) {
	src, err := logic.Open(ir.LogicFile{Path: cfg.Input, Lang: cfg.Lang, IncludeDirs: cfg.IncludeDirs}, streams.Stdin)
	if err != nil {
		return Result{}, openError(cfg, streams.Stderr, err)
	}

	rf := ir.NewResponseFile(src.File.Path, streams.Stdout)
	st, err := cfg.Apply(engine.NewState(), streams.Stderr, rf)
	if err != nil {
		return Result{}, fmt.Errorf("apply config: %w", err)
	}
	st = state.Set(st, engine.LogicFile, src.File)
	st = process.Init(st)

	producer, err := src.Statements()
	if err != nil {
		return Result{}, err
	}

	r := &run{lang: src.File.Lang}
	if cfg.DB != "" {
		if r.journal, err = store.Open(cfg.DB); err != nil {
			return Result{}, fmt.Errorf("open journal: %w", err)
		}
		defer func() {
			if closeErr := r.journal.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
	}

	clock := opts.Clock
	var startSeq int64 = 1
	if clock == nil {
		last, err := r.lastSeq(ctx)
		if err != nil {
			return Result{}, err
		}
		clock = engine.ResumeClock(last)
		startSeq = last + 1
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	loopOpts := []engine.Option{
		engine.WithClock(clock),
		engine.WithFlush(rf.Flush),
		engine.WithMetrics(engine.NewMetrics(reg)),
	}
	if opts.RunIDs != nil {
		loopOpts = append(loopOpts, engine.WithRunIDs(opts.RunIDs))
	}
	if opts.Interrupts != nil {
		loopOpts = append(loopOpts, engine.WithInterrupts(opts.Interrupts))
	}
	loop := engine.New(producer, process.Pipeline(), r.finally, loopOpts...)

	if r.journal != nil {
		err := r.journal.BeginRun(ctx, store.Run{
			ID:         loop.RunID(),
			Source:     src.File.Path,
			Digest:     src.Digest(),
			Language:   string(src.File.Lang),
			StartedSeq: startSeq,
		})
		if err != nil {
			return Result{}, err
		}
	}

	final, runErr := loop.Run(ctx, st)
	if err := rf.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush responses: %w", err)
	}
	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			slog.Error("writing metrics file failed", "path", cfg.MetricsFile, "error", err)
		}
	}

	res := Result{RunID: loop.RunID(), Succeeded: r.succeeded, Failed: r.failed, State: final}
	if ee, ok := exitError(runErr); ok {
		return res, ee
	}
	return res, runErr
}

// openError reports why the input could not be opened.
func openError(cfg config.Config, w io.Writer, err error) error {
	loc := report.Loc{File: cfg.Input}
	switch {
	case errors.Is(err, logic.ErrUnknownLanguage):
		return report.WriteError(w, cfg.Style, loc, report.UnknownLanguage, cfg.Input)
	case errors.Is(err, fs.ErrNotExist):
		return report.WriteError(w, cfg.Style, report.Loc{}, report.FileNotFound, cfg.Input)
	default:
		return err
	}
}

// exitError unwraps the fatal diagnostic that stopped the run, if any.
func exitError(err error) (*report.ExitError, bool) {
	var ee *report.ExitError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
