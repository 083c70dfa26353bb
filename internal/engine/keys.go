package engine

import (
	"io"
	"time"

	"github.com/roach88/stanza/internal/governor"
	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/state"
)

// DefaultMaxWarnings is the warning ceiling when none is configured.
const DefaultMaxWarnings = 100

// Built-in keys.
var (
	Debug        = state.NewKey[bool]("debug")
	Reports      = state.NewKey[report.Conf]("reports")
	ReportStyle  = state.NewKey[report.Style]("report_style")
	CurWarnings  = state.NewKey[int]("cur_warnings")
	MaxWarnings  = state.NewKey[int]("max_warnings")
	TimeLimit    = state.NewKey[time.Duration]("time_limit")
	SizeLimit    = state.NewKey[uint64]("size_limit")
	LogicFile    = state.NewKey[ir.LogicFile]("logic_file")
	ResponseFile = state.NewKey[ir.ResponseFile]("response_file")

	// Output is where diagnostics are written.
	Output = state.NewKey[io.Writer]("output")
)

// NewState returns a state with nothing bound.
func NewState() state.State {
	return state.Empty()
}

// DefaultState binds every built-in key to its default, with diagnostics
// going to w and responses discarded.
func DefaultState(w io.Writer) state.State {
	st := NewState()
	st = state.Set(st, Debug, false)
	st = state.Set(st, Reports, report.NewConf())
	st = state.Set(st, ReportStyle, report.Regular)
	st = state.Set(st, CurWarnings, 0)
	st = state.Set(st, MaxWarnings, DefaultMaxWarnings)
	st = state.Set(st, TimeLimit, governor.NoTimeLimit)
	st = state.Set(st, SizeLimit, governor.NoSizeLimit)
	st = state.Set(st, LogicFile, ir.LogicFile{Path: "-"})
	st = state.Set(st, ResponseFile, ir.NewResponseFile("-", io.Discard))
	st = state.Set(st, Output, w)
	return st
}

// Limits reads the resource limits held in st.
func Limits(st state.State) governor.Limits {
	return governor.Limits{
		Time: state.Get(st, TimeLimit),
		Size: state.Get(st, SizeLimit),
	}
}
