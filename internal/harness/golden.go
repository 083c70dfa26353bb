package harness

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stanza/internal/store"
)

// Transcript renders the run for golden comparison: the command, the exit
// code, both streams and one line per journal item. Durations and IDs are
// left out so transcripts are stable.
func (r *Result) Transcript() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "$ %s\n", r.Command)
	fmt.Fprintf(&buf, "exit: %d\n", r.ExitCode)
	section(&buf, "stdout", r.Stdout)
	section(&buf, "stderr", r.Stderr)
	buf.WriteString("--- journal\n")
	for _, item := range r.Journal {
		buf.WriteString(journalLine(item))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func section(buf *bytes.Buffer, name, content string) {
	fmt.Fprintf(buf, "--- %s\n", name)
	buf.WriteString(content)
	if content != "" && content[len(content)-1] != '\n' {
		buf.WriteString("\n\\ no newline\n")
	}
}

func journalLine(item store.Item) string {
	kind := item.Kind
	if kind == "" {
		kind = "-"
	}
	line := fmt.Sprintf("%d %s %s", item.Seq, kind, item.Status)
	if item.Status == store.StatusFailed {
		line += " " + item.Stage
	}
	return line
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Test failure (via goldie) occurs if the transcript doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's transcript against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, result.Transcript())
}
