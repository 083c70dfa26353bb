package process

import (
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/state"
)

// NoHeader is the value of Vars before a DIMACS header is seen.
const NoHeader int64 = -1

// Keys owned by the stages.
var (
	// Symbols maps each declared symbol to its declaration site.
	Symbols = state.NewKey[map[string]report.Loc]("symbols")

	// Logic is the logic named by the last set-logic.
	Logic = state.NewKey[string]("logic")

	// Vars is the variable count of the current DIMACS header.
	Vars = state.NewKey[int64]("dimacs_vars")
)

// Init binds the stage keys to their initial values.
func Init(st state.State) state.State {
	st = state.Set(st, Symbols, map[string]report.Loc{})
	st = state.Set(st, Logic, "")
	return state.Set(st, Vars, NoHeader)
}
