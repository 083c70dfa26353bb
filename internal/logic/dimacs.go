package logic

import (
	"strconv"
	"strings"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/report"
)

type dimacsScanner struct {
	file      string
	lines     []string
	pos       int
	sawHeader bool

	// toks are the unread tokens of the current line, at loc.
	toks []string
	loc  report.Loc
}

func (s *dimacsScanner) next() (ir.Statement, bool, error) {
	var (
		lits  []int64
		start report.Loc
	)
	for {
		if len(s.toks) == 0 {
			st, ok, err := s.advance(len(lits) > 0, start)
			if err != nil || st.Kind == ir.KindHeader {
				return st, err == nil, err
			}
			if !ok {
				if len(lits) > 0 {
					return ir.Statement{}, false, &SyntaxError{Loc: start, Msg: "unterminated clause"}
				}
				return ir.Statement{}, false, nil
			}
		}

		if len(lits) == 0 {
			start = s.loc
		} else {
			start.StopLine, start.StopCol = s.loc.StopLine, s.loc.StopCol
		}
		tok := s.toks[0]
		s.toks = s.toks[1:]
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			s.toks = nil
			return ir.Statement{}, false, &SyntaxError{Loc: s.loc, Msg: "invalid literal " + strconv.Quote(tok)}
		}
		if n == 0 {
			return ir.Statement{Kind: ir.KindClause, Lits: lits, Loc: start}, true, nil
		}
		lits = append(lits, n)
	}
}

// advance loads the next clause line into toks. A header line is returned
// as a statement instead. ok is false at end of input.
func (s *dimacsScanner) advance(inClause bool, start report.Loc) (ir.Statement, bool, error) {
	for s.pos < len(s.lines) {
		lineNo := s.pos + 1
		text, col := trimmed(s.lines[s.pos])
		s.pos++

		if text == "" || text == "%" || text == "c" || strings.HasPrefix(text, "c ") || strings.HasPrefix(text, "c\t") {
			continue
		}
		loc := report.At(s.file, lineNo, col, len(text))

		if strings.HasPrefix(text, "p ") {
			if inClause {
				return ir.Statement{}, false, &SyntaxError{Loc: start, Msg: "unterminated clause"}
			}
			st, err := s.header(text, loc)
			if err != nil {
				return ir.Statement{}, false, err
			}
			st.Loc = loc
			return st, true, nil
		}
		if !s.sawHeader {
			return ir.Statement{}, false, &SyntaxError{Loc: loc, Msg: "clause before the \"p cnf\" header"}
		}
		s.toks, s.loc = strings.Fields(text), loc
		return ir.Statement{}, true, nil
	}
	return ir.Statement{}, false, nil
}

func (s *dimacsScanner) header(text string, loc report.Loc) (ir.Statement, error) {
	fields := strings.Fields(text)
	if s.sawHeader {
		return ir.Statement{}, &SyntaxError{Loc: loc, Msg: "duplicate \"p cnf\" header"}
	}
	if len(fields) != 4 || fields[1] != "cnf" {
		return ir.Statement{}, &SyntaxError{Loc: loc, Msg: "header must be \"p cnf VARIABLES CLAUSES\""}
	}
	vars, err1 := strconv.ParseInt(fields[2], 10, 64)
	clauses, err2 := strconv.ParseInt(fields[3], 10, 64)
	if err1 != nil || err2 != nil || vars < 0 || clauses < 0 {
		return ir.Statement{}, &SyntaxError{Loc: loc, Msg: "header counts must be non-negative integers"}
	}
	s.sawHeader = true
	return ir.Statement{Kind: ir.KindHeader, Lits: []int64{vars, clauses}}, nil
}
