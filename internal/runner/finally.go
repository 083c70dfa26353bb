package runner

import (
	"context"
	"log/slog"

	"github.com/roach88/stanza/internal/config"
	"github.com/roach88/stanza/internal/engine"
	"github.com/roach88/stanza/internal/governor"
	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/state"
	"github.com/roach88/stanza/internal/store"
)

// run carries the bookkeeping of the finally hook.
type run struct {
	lang    ir.Language
	journal *store.Store

	succeeded int
	failed    int
}

func (r *run) lastSeq(ctx context.Context) (int64, error) {
	if r.journal == nil {
		return 0, nil
	}
	return r.journal.LastSeq(ctx)
}

// finally records the outcome, flushes the warning summary and decides
// whether a failure stops the run.
//
// Limit and interrupt failures become the matching error diagnostic. A
// fatal diagnostic raised by a stage was already printed and is passed on.
// Any other failure is reported as an item-failure warning and the run
// resumes, unless that warning is fatal.
func (r *run) finally(st state.State, out engine.Outcome[ir.Statement]) (state.State, error) {
	r.record(out)
	st = engine.Flush(st)
	if !out.Failed() {
		r.succeeded++
		return st, nil
	}
	r.failed++

	var loc report.Loc
	if out.HasItem {
		loc = out.Item.Loc
	}
	err := out.Failure.Err
	switch {
	case report.IsExit(err):
		return st, err
	case governor.IsTimeExceeded(err):
		return st, engine.Error(st, loc, report.TimeLimit, config.FormatTime(state.Get(st, engine.TimeLimit)))
	case governor.IsSpaceExceeded(err):
		return st, engine.Error(st, loc, report.SpaceLimit, config.FormatSize(state.Get(st, engine.SizeLimit)))
	case governor.IsInterrupt(err):
		return st, engine.Error(st, loc, report.Interrupted, nil)
	}
	return engine.Warn(st, loc, report.ItemFailure, out.Failure)
}

// record journals the outcome. Journal errors are logged, never fatal.
func (r *run) record(out engine.Outcome[ir.Statement]) {
	if r.journal == nil {
		return
	}
	var (
		stmt    *ir.Statement
		failErr error
		stage   string
	)
	if out.HasItem {
		stmt = &out.Item
	}
	if out.Failure != nil {
		failErr, stage = out.Failure.Err, out.Failure.Stage
	}
	item, err := store.NewItem(out.RunID, out.Seq, r.lang, stmt, out.Duration, failErr, stage)
	if err == nil {
		err = r.journal.RecordItem(context.Background(), item)
	}
	if err != nil {
		slog.Error("journal write failed", "run_id", out.RunID, "seq", out.Seq, "error", err)
	}
}
