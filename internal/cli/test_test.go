package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shippedScenarios = "../harness/testdata/scenarios"

func execTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// copyScenarios copies the named shipped scenarios into a fresh
// scenarios directory without goldens and returns it.
func copyScenarios(t *testing.T, names ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(shippedScenarios, name+".yaml"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execTest(t, "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execTest(t, "text", "/nonexistent/scenarios")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execTest(t, "text", t.TempDir())

	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execTest(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandRunsScenarios(t *testing.T) {
	dir := copyScenarios(t, "nested-includes", "unbound-identifier", "include-cycle")

	out, err := execTest(t, "text", dir)

	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ nested-includes")
	assert.Contains(t, out, "✓ unbound-identifier")
	assert.Contains(t, out, "3 passed, 0 failed, 3 total")
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := copyScenarios(t, "shadowing")
	golden := goldenFilePath(filepath.Join(dir, "shadowing.yaml"))

	out, err := execTest(t, "text", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ shadowing (golden updated)")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), "$ stanza run main.stz")

	out, err = execTest(t, "text", dir)
	require.NoError(t, err, out)

	require.NoError(t, os.WriteFile(golden, []byte("stale\n"), 0644))
	out, err = execTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "transcript does not match golden file")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong-exit
description: "expects success from a fatal diagnostic"
files:
  main.stz: |
    assert q
entry: main.stz
expect:
  exit_code: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong-exit.yaml"), []byte(scenario), 0644))

	out, err := execTest(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Contains(t, resp.Data.Scenarios[0].Errors, "exit code: expected 0, got 4")
}

func TestTestCommandBadScenarioFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0644))

	out, err := execTest(t, "text", dir)

	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	files, err := findScenarioFiles(shippedScenarios, "")
	require.NoError(t, err)
	assert.Len(t, files, 9)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	files, err := findScenarioFiles(shippedScenarios, "include-*")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(shippedScenarios, "include-cycle.yaml"),
		filepath.Join(shippedScenarios, "include-dir.yaml"),
	}, files)

	_, err = findScenarioFiles(shippedScenarios, "[")
	assert.ErrorContains(t, err, "invalid filter pattern")
}

func TestFindScenarioFilesSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "x.yaml"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml")}, files)
}

func TestGoldenFilePath(t *testing.T) {
	tests := []struct {
		scenario string
		want     string
	}{
		{"testdata/scenarios/shadowing.yaml", "testdata/golden/shadowing.golden"},
		{"/abs/scenarios/x.yml", "/abs/golden/x.golden"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, goldenFilePath(tt.scenario))
	}
}
