package logic

import (
	"fmt"
	"strings"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/report"
)

// SyntaxError is a malformed statement.
type SyntaxError struct {
	Loc report.Loc
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
}

// scanner yields statements from the lines of one file.
type scanner interface {
	// next returns the next statement, false at end of input, or a
	// *SyntaxError. Scanning resumes after the offending statement.
	next() (ir.Statement, bool, error)
}

func newScanner(lang ir.Language, file string, content []byte) (scanner, error) {
	lines := splitLines(string(content))
	switch lang {
	case ir.Stanza:
		return &stanzaScanner{file: file, lines: lines}, nil
	case ir.Dimacs:
		return &dimacsScanner{file: file, lines: lines}, nil
	default:
		return nil, fmt.Errorf("no parser for language %q", lang)
	}
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Parse parses every statement of content. It stops at the first syntax
// error.
func Parse(lang ir.Language, file string, content []byte) ([]ir.Statement, error) {
	sc, err := newScanner(lang, file, content)
	if err != nil {
		return nil, err
	}
	var out []ir.Statement
	for {
		st, ok, err := sc.next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, st)
	}
}

// trimmed returns the line without leading and trailing blanks and the
// 1-based column where the remaining text starts.
func trimmed(line string) (string, int) {
	body := strings.TrimLeft(line, " \t")
	col := len(line) - len(body) + 1
	return strings.TrimRight(body, " \t"), col
}
