package process

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/roach88/stanza/internal/engine"
	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/logic"
	"github.com/roach88/stanza/internal/pipeline"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/state"
)

// Stage names.
const (
	StageExpandIncludes = "expand-includes"
	StageCheckSymbols   = "check-symbols"
	StageRespond        = "respond"
	StageDone           = "done"
)

// Responses written by respond.
const (
	ResponseOK         = "ok"
	ResponseSatPending = "sat-pending"
)

var knownLogics = map[string]bool{
	"ALL": true, "UF": true, "LIA": true, "LRA": true,
	"QF_UF": true, "QF_LIA": true, "QF_LRA": true, "QF_IDL": true,
	"QF_BV": true, "QF_AX": true, "QF_AUFLIA": true,
}

// Pipeline assembles the bundled pipeline. Statements produced by an
// include go back through the whole pipeline, so includes nest; the
// fixpoint depth quota bounds include cycles.
func Pipeline() pipeline.Pipeline[ir.Statement, pipeline.Unit] {
	finish := pipeline.Map(pipeline.Pure(StageDone, func(ir.Statement) pipeline.Unit { return pipeline.Unit{} }),
		pipeline.End[pipeline.Unit]())
	handle := pipeline.Cont(CheckSymbols(), pipeline.Map(Respond(), finish))
	return pipeline.Rec(func(self pipeline.Pipeline[ir.Statement, pipeline.Unit]) pipeline.Pipeline[ir.Statement, pipeline.Unit] {
		return pipeline.Fix(ExpandIncludes(), pipeline.Branch(isInclude, self, handle))
	})
}

func isInclude(stmt ir.Statement) bool {
	return stmt.Kind == ir.KindInclude
}

// ExpandIncludes expands an include statement into the statements of the
// included file. Other statements pass through unexpanded.
//
// The included file is resolved against the including file's directory,
// then the LogicFile include directories. Its language is detected from the
// extension and defaults to the including file's.
func ExpandIncludes() pipeline.Op[ir.Statement, pipeline.Expansion[ir.Statement]] {
	return pipeline.NewOp(StageExpandIncludes, func(_ context.Context, st state.State, stmt ir.Statement) (state.State, pipeline.Expansion[ir.Statement], error) {
		if stmt.Kind != ir.KindInclude {
			return st, pipeline.NoExpansion[ir.Statement](), nil
		}

		lf := state.Get(st, engine.LogicFile)
		path, ok := logic.Resolve(includeDir(stmt.Loc.File), stmt.Name, lf.IncludeDirs...)
		if !ok {
			return st, pipeline.Expansion[ir.Statement]{}, engine.Error(st, stmt.Loc, report.FileNotFound, stmt.Name)
		}
		lang, ok := logic.Detect(path)
		if !ok {
			lang = lf.Lang
		}
		src, err := logic.Open(ir.LogicFile{Path: path, Lang: lang}, nil)
		if err != nil {
			return st, pipeline.Expansion[ir.Statement]{}, err
		}
		next, err := src.Statements()
		if err != nil {
			return st, pipeline.Expansion[ir.Statement]{}, err
		}
		return st, pipeline.Expand(mergeInclude, warnIfEmpty(next, stmt)), nil
	})
}

func includeDir(file string) string {
	if file == "" || file == "<stdin>" {
		return "."
	}
	return filepath.Dir(file)
}

// mergeInclude keeps everything the included statements did, except that a
// DIMACS header only applies within its own file.
func mergeInclude(before, after state.State) state.State {
	return state.Set(after, Vars, state.Get(before, Vars))
}

// warnIfEmpty reports an empty-include warning when next yields nothing.
func warnIfEmpty(next pipeline.Producer[ir.Statement], include ir.Statement) pipeline.Producer[ir.Statement] {
	produced := false
	return func(ctx context.Context, st state.State) (state.State, ir.Statement, bool, error) {
		st, stmt, ok, err := next(ctx, st)
		if err != nil || ok {
			produced = produced || ok
			return st, stmt, ok, err
		}
		if !produced {
			produced = true
			st, err = engine.Warn(st, include.Loc, report.EmptyInclude, include.Name)
		}
		return st, stmt, false, err
	}
}

// CheckSymbols validates a statement against the symbol table and logic.
// Statements that need no response are finished early.
func CheckSymbols() pipeline.Op[ir.Statement, pipeline.Signal[ir.Statement, pipeline.Unit]] {
	type signal = pipeline.Signal[ir.Statement, pipeline.Unit]
	proceed := func(stmt ir.Statement) signal { return pipeline.Continue[ir.Statement, pipeline.Unit](stmt) }
	finish := pipeline.Done[ir.Statement, pipeline.Unit](pipeline.Unit{})

	return pipeline.NewOp(StageCheckSymbols, func(_ context.Context, st state.State, stmt ir.Statement) (state.State, signal, error) {
		var err error
		switch stmt.Kind {
		case ir.KindSetLogic:
			if !knownLogics[stmt.Name] {
				if st, err = engine.Warn(st, stmt.Loc, report.UnknownLogic, stmt.Name); err != nil {
					return st, finish, err
				}
			}
			return state.Set(st, Logic, stmt.Name), proceed(stmt), nil

		case ir.KindDeclare:
			symbols := state.Get(st, Symbols)
			if _, dup := symbols[stmt.Name]; dup {
				if st, err = engine.Warn(st, stmt.Loc, report.Shadowing, stmt.Name); err != nil {
					return st, finish, err
				}
			}
			next := maps.Clone(symbols)
			next[stmt.Name] = stmt.Loc
			return state.Set(st, Symbols, next), proceed(stmt), nil

		case ir.KindAssert:
			symbols := state.Get(st, Symbols)
			for _, sym := range stmt.Symbols {
				if _, ok := symbols[sym]; !ok {
					return st, finish, engine.Error(st, symbolLoc(stmt, sym), report.UnboundIdentifier, sym)
				}
			}
			return st, proceed(stmt), nil

		case ir.KindHeader:
			return state.Set(st, Vars, stmt.Lits[0]), finish, nil

		case ir.KindClause:
			vars := state.Get(st, Vars)
			for _, lit := range stmt.Lits {
				if lit > vars || -lit > vars {
					return st, finish, engine.Error(st, stmt.Loc, report.LiteralOutOfRange, lit)
				}
			}
			return st, finish, nil

		default:
			return st, proceed(stmt), nil
		}
	})
}

// symbolLoc narrows an assert's location to the first use of sym.
func symbolLoc(stmt ir.Statement, sym string) report.Loc {
	i := strings.Index(stmt.Term, sym)
	if i < 0 || stmt.Loc.StartLine == 0 || stmt.Loc.StopLine != stmt.Loc.StartLine {
		return stmt.Loc
	}
	col := stmt.Loc.StartCol + len("assert ") + i
	return report.At(stmt.Loc.File, stmt.Loc.StartLine, col, len(sym))
}

// Respond writes the response line of a statement to the response file.
func Respond() pipeline.Op[ir.Statement, ir.Statement] {
	return pipeline.Effect(StageRespond, func(ctx context.Context, st state.State, stmt ir.Statement) error {
		rf := state.Get(st, engine.ResponseFile)
		resp := ResponseOK
		if stmt.Kind == ir.KindCheck {
			resp = ResponseSatPending
		}
		if err := rf.WriteLine(ctx, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		return nil
	})
}
