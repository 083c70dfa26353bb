package ir

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/stanza/internal/report"
)

// Language is an input language tag.
type Language string

const (
	// Stanza is the line-oriented declaration language.
	Stanza Language = "stanza"
	// Dimacs is the DIMACS CNF clause format.
	Dimacs Language = "dimacs"
)

// Languages lists every supported input language.
var Languages = []Language{Stanza, Dimacs}

// ParseLanguage converts a language name.
func ParseLanguage(s string) (Language, error) {
	for _, l := range Languages {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown language %q: must be one of %v", s, Languages)
}

// Kind is a statement kind.
type Kind string

const (
	KindSetLogic Kind = "set-logic"
	KindDeclare  Kind = "declare"
	KindAssert   Kind = "assert"
	KindInclude  Kind = "include"
	KindCheck    Kind = "check"
	KindHeader   Kind = "header"
	KindClause   Kind = "clause"
)

// Statement is one parsed top-level statement.
type Statement struct {
	Kind Kind `json:"kind"`

	// Name is the logic, symbol or file named by set-logic, declare and include.
	Name string `json:"name,omitempty"`

	// Term is the asserted term, verbatim.
	Term string `json:"term,omitempty"`

	// Symbols are the identifiers Term refers to, in order of first use.
	Symbols []string `json:"symbols,omitempty"`

	// Lits holds a clause's literals, or a header's variable and clause counts.
	Lits []int64 `json:"lits,omitempty"`

	Loc report.Loc `json:"-"`
}

// Canonical returns the statement's canonical value. Loc is excluded so the
// identity does not depend on where the statement appears.
func (s Statement) Canonical() Object {
	obj := Object{"kind": String(s.Kind)}
	if s.Name != "" {
		obj["name"] = String(s.Name)
	}
	if s.Term != "" {
		obj["term"] = String(s.Term)
	}
	if len(s.Symbols) > 0 {
		obj["symbols"] = Strings(s.Symbols)
	}
	if len(s.Lits) > 0 {
		obj["lits"] = Ints(s.Lits)
	}
	return obj
}

// String renders the statement in its source syntax.
func (s Statement) String() string {
	switch s.Kind {
	case KindAssert:
		return "assert " + s.Term
	case KindInclude:
		return fmt.Sprintf("include %q", s.Name)
	case KindCheck:
		return "check"
	case KindHeader:
		if len(s.Lits) == 2 {
			return fmt.Sprintf("p cnf %d %d", s.Lits[0], s.Lits[1])
		}
		return "p cnf"
	case KindClause:
		parts := make([]string, 0, len(s.Lits)+1)
		for _, l := range s.Lits {
			parts = append(parts, strconv.FormatInt(l, 10))
		}
		return strings.Join(append(parts, "0"), " ")
	default:
		return strings.TrimSpace(string(s.Kind) + " " + s.Name)
	}
}

// LogicFile describes the input being processed.
type LogicFile struct {
	// Path is the input file; "-" or empty means standard input.
	Path string

	// Lang is the declared or detected language.
	Lang Language

	// IncludeDirs are searched, in order, after the including file's directory.
	IncludeDirs []string
}

// Dir is the directory include paths are first resolved against.
func (f LogicFile) Dir() string {
	if f.Path == "" || f.Path == "-" {
		return "."
	}
	return filepath.Dir(f.Path)
}

// ResponseFile is the buffered sink responses are written to. Copies share
// one buffer; writes and flushes are serialized.
type ResponseFile struct {
	Path string
	out  *lockedWriter
}

type lockedWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewResponseFile wraps w in a buffered writer.
func NewResponseFile(path string, w io.Writer) ResponseFile {
	return ResponseFile{Path: path, out: &lockedWriter{w: bufio.NewWriter(w)}}
}

// WriteLine buffers one response line. Once ctx is done the line is
// dropped and context.Cause(ctx) returned, so a preempted item cannot add
// responses after its failure was reported.
func (r ResponseFile) WriteLine(ctx context.Context, line string) error {
	if r.out == nil {
		return errors.New("response file not open")
	}
	r.out.mu.Lock()
	defer r.out.mu.Unlock()
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if _, err := r.out.w.WriteString(line); err != nil {
		return err
	}
	return r.out.w.WriteByte('\n')
}

// Flush writes any buffered response. Safe on the zero value.
func (r ResponseFile) Flush() error {
	if r.out == nil {
		return nil
	}
	r.out.mu.Lock()
	defer r.out.mu.Unlock()
	return r.out.w.Flush()
}
