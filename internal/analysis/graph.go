// Package analysis inspects the include structure of input files without
// running them: which files a run would read, which includes cannot be
// resolved, and which includes form cycles.
package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/logic"
	"github.com/roach88/stanza/internal/report"
)

// ProblemKind classifies a Problem.
type ProblemKind string

const (
	ProblemLanguage ProblemKind = "language"
	ProblemRead     ProblemKind = "read"
	ProblemParse    ProblemKind = "parse"
	ProblemMissing  ProblemKind = "missing-include"
)

// Problem is one file that could not be read, parsed or found.
type Problem struct {
	Kind    ProblemKind
	Loc     report.Loc
	Message string
}

// Include is one include statement and where it resolved to.
type Include struct {
	Name   string
	Loc    report.Loc
	Target string // resolved path, empty when not found
}

// File is one parsed input of the graph.
type File struct {
	Path       string
	Lang       ir.Language
	Statements int
	Includes   []Include
}

// Graph is the include graph reachable from a root file.
type Graph struct {
	Root  string
	Files map[string]*File
	Order []string // discovery order, root first
}

// Build parses root and, transitively, every file it includes. Included
// files are resolved the way a run resolves them: against the including
// file's directory, then searchDirs. Their language is detected from the
// extension and defaults to the including file's.
//
// Files that fail are reported as problems and left out of the graph;
// everything that could be read is still analyzed.
func Build(root string, lang ir.Language, searchDirs []string) (*Graph, []Problem) {
	root = filepath.Clean(root)
	g := &Graph{Root: root, Files: make(map[string]*File)}
	if lang == "" {
		detected, ok := logic.Detect(root)
		if !ok {
			return g, []Problem{{
				Kind:    ProblemLanguage,
				Loc:     report.Loc{File: root},
				Message: "cannot detect the input language, use --lang",
			}}
		}
		lang = detected
	}

	var problems []Problem
	queue := []*File{{Path: root, Lang: lang}}
	seen := map[string]bool{root: true}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		stmts, problem, ok := parse(f)
		if !ok {
			problems = append(problems, problem)
			continue
		}
		if problem.Kind != "" {
			problems = append(problems, problem)
		}
		f.Statements = len(stmts)
		g.Files[f.Path] = f
		g.Order = append(g.Order, f.Path)

		for _, st := range stmts {
			if st.Kind != ir.KindInclude {
				continue
			}
			inc := Include{Name: st.Name, Loc: st.Loc}
			target, found := logic.Resolve(filepath.Dir(f.Path), st.Name, searchDirs...)
			if !found {
				problems = append(problems, Problem{
					Kind:    ProblemMissing,
					Loc:     st.Loc,
					Message: fmt.Sprintf("included file %q not found", st.Name),
				})
				f.Includes = append(f.Includes, inc)
				continue
			}
			inc.Target = filepath.Clean(target)
			f.Includes = append(f.Includes, inc)
			if seen[inc.Target] {
				continue
			}
			seen[inc.Target] = true
			childLang, ok := logic.Detect(inc.Target)
			if !ok {
				childLang = f.Lang
			}
			queue = append(queue, &File{Path: inc.Target, Lang: childLang})
		}
	}
	return g, problems
}

// parse reads and parses f. A syntax error still returns the statements
// before it, with ok set and the problem filled in.
func parse(f *File) (stmts []ir.Statement, problem Problem, ok bool) {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, Problem{Kind: ProblemRead, Loc: report.Loc{File: f.Path}, Message: err.Error()}, false
	}
	stmts, err = logic.Parse(f.Lang, f.Path, content)
	if err == nil {
		return stmts, Problem{}, true
	}
	var se *logic.SyntaxError
	if !errors.As(err, &se) {
		return nil, Problem{Kind: ProblemParse, Loc: report.Loc{File: f.Path}, Message: err.Error()}, false
	}
	return stmts, Problem{Kind: ProblemParse, Loc: se.Loc, Message: se.Msg}, true
}
