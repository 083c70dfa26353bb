package engine

import (
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/state"
)

// Warn reports a warning under the policy held in st.
//
// A disabled warning is dropped. An enabled one is counted; it prints only
// while the count stays within MaxWarnings. The first warning over the
// ceiling does not flush by itself: the hidden ones are summarized and the
// counter reset by the next Flush, which the run's finally hook calls at the
// end of every item. A fatal one prints as an error and returns the
// *report.ExitError the caller should propagate.
func Warn(st state.State, loc report.Loc, kind *report.Warning, payload any) (state.State, error) {
	w := state.Get(st, Output)
	style := state.Get(st, ReportStyle)

	switch state.Get(st, Reports).Status(kind) {
	case report.Disabled:
		return st, nil
	case report.Fatal:
		return st, report.WriteFatalWarning(w, style, loc, kind, payload)
	}

	cur := state.Get(st, CurWarnings) + 1
	st = state.Set(st, CurWarnings, cur)
	if cur <= state.Get(st, MaxWarnings) {
		report.WriteWarning(w, style, loc, kind, payload)
	}
	return st, nil
}

// Error prints an error and returns the *report.ExitError carrying its exit
// code. Errors are always fatal.
func Error(st state.State, loc report.Loc, kind *report.Error, payload any) error {
	return report.WriteError(state.Get(st, Output), state.Get(st, ReportStyle), loc, kind, payload)
}

// Flush prints the summary of warnings hidden by the ceiling, if any, and
// resets the counter.
func Flush(st state.State) state.State {
	cur, max := state.Get(st, CurWarnings), state.Get(st, MaxWarnings)
	if cur > max {
		report.WriteSummary(state.Get(st, Output), state.Get(st, ReportStyle), max, cur-max)
	}
	return state.Set(st, CurWarnings, 0)
}
