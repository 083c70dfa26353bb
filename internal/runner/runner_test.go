package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stanza/internal/config"
	"github.com/roach88/stanza/internal/engine"
	"github.com/roach88/stanza/internal/governor"
	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/pipeline"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/store"
)

type streams struct {
	stdout, stderr bytes.Buffer
}

func (s *streams) get(stdin string) Streams {
	return Streams{Stdin: strings.NewReader(stdin), Stdout: &s.stdout, Stderr: &s.stderr}
}

// writeFiles creates files under a temp dir and returns the dir.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func configFor(input string) config.Config {
	c := config.Default()
	c.Input = input
	return c
}

func TestRun_RespondsPerStatement(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.stz": "declare x\nassert (not x)\ncheck\n"})
	var s streams

	res, err := Run(context.Background(), configFor(filepath.Join(dir, "main.stz")), s.get(""), Options{})

	require.NoError(t, err)
	assert.Equal(t, "ok\nok\nsat-pending\n", s.stdout.String())
	assert.Empty(t, s.stderr.String())
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_Stdin(t *testing.T) {
	var s streams
	cfg := configFor("-")
	cfg.Lang = ir.Dimacs

	_, err := Run(context.Background(), cfg, s.get("p cnf 2 1\n1 -2 0\n"), Options{})

	require.NoError(t, err)
	assert.Empty(t, s.stdout.String(), "dimacs input needs no response")
}

func TestRun_StdinNeedsLanguage(t *testing.T) {
	var s streams

	_, err := Run(context.Background(), configFor("-"), s.get("check\n"), Options{})

	code, ok := report.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, report.CodeGeneric.Exit, code)
	assert.Contains(t, s.stderr.String(), "Error[unknown-language]")
}

func TestRun_MissingInput(t *testing.T) {
	var s streams

	_, err := Run(context.Background(), configFor(filepath.Join(t.TempDir(), "nope.stz")), s.get(""), Options{})

	code, ok := report.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, report.CodeGeneric.Exit, code)
	assert.Contains(t, s.stderr.String(), "Error[file-not-found]")
}

func TestRun_ErrorStopsRun(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.stz": "declare x\nassert (and x q)\ncheck\n"})
	var s streams

	res, err := Run(context.Background(), configFor(filepath.Join(dir, "main.stz")), s.get(""), Options{})

	code, ok := report.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, report.CodeTyping.Exit, code)
	assert.Equal(t, "ok\n", s.stdout.String(), "responses before the error are flushed")
	assert.Contains(t, s.stderr.String(), `Error[unbound-identifier]: unbound identifier "q"`)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
}

func TestRun_ItemFailureWarnsAndResumes(t *testing.T) {
	dir := writeFiles(t, map[string]string{"loop.stz": "include \"loop.stz\"\ndeclare y\n"})
	var s streams

	res, err := Run(context.Background(), configFor(filepath.Join(dir, "loop.stz")), s.get(""), Options{})

	require.NoError(t, err)
	assert.Contains(t, s.stderr.String(), "Warning[item-failure]")
	assert.Contains(t, s.stderr.String(), pipeline.ErrFixDepthExceeded.Error())
	assert.Equal(t, "ok\n", s.stdout.String())
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Succeeded)
}

func TestRun_ItemFailureFatal(t *testing.T) {
	dir := writeFiles(t, map[string]string{"loop.stz": "include \"loop.stz\"\ndeclare y\n"})
	cfg := configFor(filepath.Join(dir, "loop.stz"))
	cfg.Warnings = []string{"item-failure=fatal"}
	var s streams

	_, err := Run(context.Background(), cfg, s.get(""), Options{})

	code, ok := report.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, report.CodeInternal.Exit, code)
	assert.Empty(t, s.stdout.String())
}

func TestRun_JournalContinuesSeq(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.stz": "declare x\ncheck\n"})
	cfg := configFor(filepath.Join(dir, "main.stz"))
	cfg.DB = filepath.Join(dir, "journal.db")
	ids := engine.NewFixedGenerator("run-a", "run-b")

	for range 2 {
		var s streams
		_, err := Run(context.Background(), cfg, s.get(""), Options{RunIDs: ids})
		require.NoError(t, err)
	}

	j, err := store.Open(cfg.DB)
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	runs, err := j.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, int64(1), runs[0].StartedSeq)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Equal(t, int64(3), runs[1].StartedSeq)
	assert.Equal(t, string(ir.Stanza), runs[1].Language)

	items, err := j.ListItems(ctx, "run-b")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].Seq)
	assert.Equal(t, "declare x", items[0].Text)
	assert.Equal(t, store.StatusOK, items[1].Status)
}

func TestRun_MetricsFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.stz": "check\n"})
	cfg := configFor(filepath.Join(dir, "main.stz"))
	cfg.MetricsFile = filepath.Join(dir, "stanza.prom")
	reg := prometheus.NewRegistry()
	var s streams

	_, err := Run(context.Background(), cfg, s.get(""), Options{Registry: reg})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `stanza_items_total{outcome="ok"} 1`)
}

func TestFinally_LimitsBecomeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		code int
	}{
		{"time", &governor.LimitError{Kind: governor.KindTime, Time: 2 * time.Second}, "Error[time-limit]: time limit reached: 2s\n", report.CodeLimit.Exit},
		{"space", &governor.LimitError{Kind: governor.KindSpace, Size: 1 << 20}, "Error[space-limit]: memory limit reached: 1.0 MiB\n", report.CodeLimit.Exit},
		{"interrupt", &governor.LimitError{Kind: governor.KindInterrupt}, "Error[interrupted]: user interrupt\n", report.CodeInterrupt.Exit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diag bytes.Buffer
			cfg := config.Default()
			cfg.Time = 2 * time.Second
			cfg.Size = 1 << 20
			st, err := cfg.Apply(engine.NewState(), &diag, ir.NewResponseFile("-", &bytes.Buffer{}))
			require.NoError(t, err)
			r := &run{lang: ir.Stanza}

			_, err = r.finally(st, engine.Outcome[ir.Statement]{Failure: &pipeline.Failure{Err: tt.err}})

			code, ok := report.ExitCode(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.want, diag.String())
			assert.Equal(t, 1, r.failed)
		})
	}
}

func TestFinally_FlushesWarningSummary(t *testing.T) {
	var diag bytes.Buffer
	cfg := config.Default()
	cfg.MaxWarnings = 0
	st, err := cfg.Apply(engine.NewState(), &diag, ir.NewResponseFile("-", &bytes.Buffer{}))
	require.NoError(t, err)
	st, err = engine.Warn(st, report.Loc{}, report.Shadowing, "x")
	require.NoError(t, err)
	r := &run{lang: ir.Stanza}

	st, err = r.finally(st, engine.Outcome[ir.Statement]{HasItem: true})

	require.NoError(t, err)
	assert.Equal(t, "Over the limit of 0 warnings, hid 1\n", diag.String())
	assert.Equal(t, 1, r.succeeded)
}
