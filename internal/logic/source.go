package logic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/roach88/stanza/internal/engine"
	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/pipeline"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/state"
)

// ErrUnknownLanguage is returned by Open when no language was declared and
// none can be detected.
var ErrUnknownLanguage = errors.New("cannot detect input language")

// Source is an opened input file.
type Source struct {
	File    ir.LogicFile
	Content []byte
}

// Open reads the input named by file, or stdin when its path is "-" or
// empty. A declared language wins over detection.
func Open(file ir.LogicFile, stdin io.Reader) (Source, error) {
	var (
		content []byte
		err     error
	)
	if file.Path == "" || file.Path == "-" {
		file.Path = "-"
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(file.Path)
	}
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", file.Path, err)
	}

	if file.Lang == "" {
		lang, ok := Detect(file.Path)
		if !ok {
			return Source{File: file, Content: content}, fmt.Errorf("%w: %s", ErrUnknownLanguage, file.Path)
		}
		file.Lang = lang
	}
	return Source{File: file, Content: content}, nil
}

// Digest identifies the source by content.
func (s Source) Digest() string {
	return ir.SourceDigest(s.Content)
}

// Statements returns a producer over the source's statements. A syntax
// error is reported as a parse-error diagnostic, and the returned
// *report.ExitError is the producer's error.
func (s Source) Statements() (pipeline.Producer[ir.Statement], error) {
	name := s.File.Path
	if name == "-" {
		name = "<stdin>"
	}
	sc, err := newScanner(s.File.Lang, name, s.Content)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, st state.State) (state.State, ir.Statement, bool, error) {
		if err := ctx.Err(); err != nil {
			return st, ir.Statement{}, false, err
		}
		stmt, ok, err := sc.next()
		if err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				return st, ir.Statement{}, false, engine.Error(st, se.Loc, report.ParseError, se.Msg)
			}
			return st, ir.Statement{}, false, err
		}
		return st, stmt, ok, nil
	}, nil
}
