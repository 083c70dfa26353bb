package logic

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/report"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.'!]*$`)

// operators are the term words that are not user symbols.
var operators = map[string]bool{
	"and": true, "or": true, "not": true, "xor": true, "=>": true,
	"=": true, "distinct": true, "ite": true, "true": true, "false": true,
}

type stanzaScanner struct {
	file  string
	lines []string
	pos   int
}

func (s *stanzaScanner) next() (ir.Statement, bool, error) {
	for s.pos < len(s.lines) {
		lineNo := s.pos + 1
		raw := s.lines[s.pos]
		s.pos++

		if i := strings.IndexByte(raw, ';'); i >= 0 {
			raw = raw[:i]
		}
		text, col := trimmed(raw)
		if text == "" {
			continue
		}
		loc := report.At(s.file, lineNo, col, len(text))
		st, err := s.statement(text, loc)
		if err != nil {
			return ir.Statement{}, false, err
		}
		st.Loc = loc
		return st, true, nil
	}
	return ir.Statement{}, false, nil
}

func (s *stanzaScanner) statement(text string, loc report.Loc) (ir.Statement, error) {
	cmd, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)

	switch ir.Kind(cmd) {
	case ir.KindSetLogic, ir.KindDeclare:
		if !identRe.MatchString(rest) {
			return ir.Statement{}, &SyntaxError{Loc: loc, Msg: cmd + " expects one identifier"}
		}
		return ir.Statement{Kind: ir.Kind(cmd), Name: rest}, nil

	case ir.KindAssert:
		if rest == "" {
			return ir.Statement{}, &SyntaxError{Loc: loc, Msg: "assert expects a term"}
		}
		symbols, err := termSymbols(rest)
		if err != nil {
			return ir.Statement{}, &SyntaxError{Loc: loc, Msg: err.Error()}
		}
		return ir.Statement{Kind: ir.KindAssert, Term: rest, Symbols: symbols}, nil

	case ir.KindInclude:
		name, err := strconv.Unquote(rest)
		if err != nil || name == "" {
			return ir.Statement{}, &SyntaxError{Loc: loc, Msg: "include expects a quoted file name"}
		}
		return ir.Statement{Kind: ir.KindInclude, Name: name}, nil

	case ir.KindCheck:
		if rest != "" {
			return ir.Statement{}, &SyntaxError{Loc: loc, Msg: "check takes no argument"}
		}
		return ir.Statement{Kind: ir.KindCheck}, nil

	default:
		return ir.Statement{}, &SyntaxError{Loc: loc, Msg: "unknown command " + strconv.Quote(cmd)}
	}
}

// termSymbols checks that parentheses balance and returns the user symbols
// of the term in order of first use.
func termSymbols(term string) ([]string, error) {
	depth := 0
	for _, r := range term {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, errUnbalanced
			}
		}
	}
	if depth != 0 {
		return nil, errUnbalanced
	}

	fields := strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(term))
	seen := make(map[string]bool)
	var symbols []string
	for _, f := range fields {
		if operators[f] || seen[f] {
			continue
		}
		if !identRe.MatchString(f) {
			return nil, fmt.Errorf("unexpected token %q in term", f)
		}
		seen[f] = true
		symbols = append(symbols, f)
	}
	return symbols, nil
}

var errUnbalanced = errors.New("unbalanced parentheses in term")
