package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/queryir"
	"github.com/roach88/stanza/internal/store"
)

// journalWithRun runs a two-statement file, the second failing, into a
// fresh journal and returns its path.
func journalWithRun(t *testing.T) string {
	t.Helper()
	dir := writeFiles(t, map[string]string{"loop.stz": "include \"loop.stz\"\ndeclare y\n"})
	db := filepath.Join(dir, "journal.db")
	_, _, err := execRun(t, "", "--db", db, "--style", "minimal", filepath.Join(dir, "loop.stz"))
	require.NoError(t, err)
	return db
}

func execTrace(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := execTrace(t, "text", "--run", "cli-run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := execTrace(t, "text", "--db", filepath.Join(t.TempDir(), "missing.db"))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open journal")
}

func TestTraceListsRuns(t *testing.T) {
	db := journalWithRun(t)

	out, err := execTrace(t, "text", "--db", db)

	require.NoError(t, err)
	assert.Contains(t, out, "=== Runs ===")
	assert.Contains(t, out, "cli-run")
	assert.Contains(t, out, "[stanza]  ok=1 failed=1")
}

func TestTraceEmptyJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execTrace(t, "text", "--db", db)

	require.NoError(t, err)
	assert.Contains(t, out, "(no runs)")
}

func TestTraceShowsRunItems(t *testing.T) {
	db := journalWithRun(t)

	out, err := execTrace(t, "text", "--db", db, "--run", "cli-run")

	require.NoError(t, err)
	assert.Contains(t, out, "Run: cli-run")
	assert.Contains(t, out, `[1] failed include "loop.stz"`)
	assert.Contains(t, out, "Stage: expand-includes")
	assert.Contains(t, out, "[2] ok     declare y")
	assert.Contains(t, out, "Failed: 1")
}

func TestTraceFailedOnlyJSON(t *testing.T) {
	db := journalWithRun(t)

	out, err := execTrace(t, "json", "--db", db, "--run", "cli-run", "--failed")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data.Run)
	assert.Equal(t, 1, resp.Data.Run.OK)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, store.StatusFailed, resp.Data.Items[0].Status)
	assert.Equal(t, "include", resp.Data.Items[0].Kind)
}

func TestTraceKindAndStageFilters(t *testing.T) {
	db := journalWithRun(t)

	out, err := execTrace(t, "text", "--db", db, "--run", "cli-run", "--kind", "declare,check")
	require.NoError(t, err)
	assert.Contains(t, out, "declare y")
	assert.NotContains(t, out, "include")

	out, err = execTrace(t, "text", "--db", db, "--run", "cli-run", "--stage", "check-symbols")
	require.NoError(t, err)
	assert.Contains(t, out, "(no items)")
	assert.Contains(t, out, "Failed: 1", "stats count the whole run")
}

func TestItemFilter(t *testing.T) {
	runOnly := itemFilter(&TraceOptions{RunID: "r"})
	assert.Equal(t, queryir.Equals{Field: "run_id", Value: ir.String("r")}, runOnly)

	all := itemFilter(&TraceOptions{RunID: "r", Failed: true, Kinds: []string{"include"}, Stage: "expand-includes"})
	and, ok := all.(queryir.And)
	require.True(t, ok)
	assert.Len(t, and.Predicates, 4)
}

func TestTraceUnknownRun(t *testing.T) {
	db := journalWithRun(t)

	_, err := execTrace(t, "text", "--db", db, "--run", "nope")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestFormatItemVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatItem(buf, store.Item{Seq: 3, Status: store.StatusOK, Text: "check", StatementID: "0123456789abcdef0123", Duration: 1500 * time.Microsecond}, true)

	assert.Equal(t, "  [3] ok     check\n       Duration: 1.5ms\n       ID: 0123456789abcdef...\n", buf.String())
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "0123456789abcdef...", truncateID("0123456789abcdef0"))
}
