package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/store"
	"github.com/roach88/stanza/internal/testutil"
)

// writeFiles creates files under a temp dir and returns the dir.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// execRun runs `stanza run args...` with a fixed run ID.
func execRun(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      testutil.NewFixedRunIDs("cli-run"),
	}
	cmd := newRunCommand(opts)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRunProcessesFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.stz": "declare x\nassert (not x)\ncheck\n"})

	stdout, stderr, err := execRun(t, "", filepath.Join(dir, "main.stz"))

	require.NoError(t, err)
	assert.Equal(t, "ok\nok\nsat-pending\n", stdout)
	assert.Empty(t, stderr)
}

func TestRunReadsStdin(t *testing.T) {
	stdout, _, err := execRun(t, "declare x\ncheck\n", "--lang", "stanza")

	require.NoError(t, err)
	assert.Equal(t, "ok\nsat-pending\n", stdout)
}

func TestRunStdinWithoutLanguage(t *testing.T) {
	_, stderr, err := execRun(t, "check\n", "-")

	require.Error(t, err)
	assert.Equal(t, report.CodeGeneric.Exit, GetExitCode(err))
	assert.Contains(t, stderr, "Error[unknown-language]")
}

func TestRunFatalDiagnosticKeepsExitCode(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.stz": "declare x\nassert (and x q)\n"})

	stdout, stderr, err := execRun(t, "", "--style", "minimal", filepath.Join(dir, "main.stz"))

	require.Error(t, err)
	assert.True(t, IsReported(err), "the diagnostic is already printed")
	assert.Equal(t, report.CodeTyping.Exit, GetExitCode(err))
	assert.Equal(t, "ok\n", stdout)
	assert.Equal(t, "E:unbound-identifier\n", stderr)
}

func TestRunWarnFlagEscalates(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.stz": "declare x\ndeclare x\n"})

	_, stderr, err := execRun(t, "", "--warn", "shadowing=fatal", filepath.Join(dir, "main.stz"))

	require.Error(t, err)
	assert.Equal(t, report.CodeTyping.Exit, GetExitCode(err))
	assert.Contains(t, stderr, "Error[shadowing]")
}

func TestRunInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"style", []string{"--style", "fancy", "main.stz"}},
		{"size", []string{"--size", "lots", "main.stz"}},
		{"warn", []string{"--warn", "shadowing", "main.stz"}},
		{"config", []string{"--config", "/nonexistent/stanza.cue", "main.stz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execRun(t, "", tt.args...)

			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestRunTooManyArgs(t *testing.T) {
	_, _, err := execRun(t, "", "a.stz", "b.stz")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg")
}

func TestRunRecordsJournal(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.stz": "declare x\ncheck\n"})
	db := filepath.Join(dir, "journal.db")

	_, _, err := execRun(t, "", "--db", db, filepath.Join(dir, "main.stz"))
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	items, err := st.ListItems(context.Background(), "cli-run")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "declare", items[0].Kind)
	assert.Equal(t, store.StatusOK, items[1].Status)
}

func TestRunHelpText(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	assert.Equal(t, "run [file]", cmd.Use)
	assert.Contains(t, cmd.Long, "Exit codes")
	for _, name := range []string{"time", "size", "max-warn", "style", "warn", "lang", "include-dir", "db", "metrics-file", "config", "debug"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "I", cmd.Flags().Lookup("include-dir").Shorthand)
}
