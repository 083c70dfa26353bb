package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/report"
)

func parseFlags(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return f
}

func TestFlags_UnsetKeepsDefaults(t *testing.T) {
	c, err := parseFlags(t).Resolve("")
	require.NoError(t, err)

	assert.Equal(t, Default(), c)
}

func TestFlags_Override(t *testing.T) {
	f := parseFlags(t,
		"--time", "2s", "--size", "1MiB", "--max-warn", "3", "--style", "minimal",
		"--warn", "shadowing=fatal", "--warn", "empty-include=enabled",
		"--lang", "dimacs", "-I", "a", "--include-dir", "b",
		"--db", "j.db", "--metrics-file", "m.prom", "--debug",
	)

	c, err := f.Resolve("in.cnf")
	require.NoError(t, err)

	assert.Equal(t, "in.cnf", c.Input)
	assert.Equal(t, 2*time.Second, c.Time)
	assert.Equal(t, uint64(1<<20), c.Size)
	assert.Equal(t, 3, c.MaxWarnings)
	assert.Equal(t, report.Minimal, c.Style)
	assert.Equal(t, []string{"shadowing=fatal", "empty-include=enabled"}, c.Warnings)
	assert.Equal(t, ir.Dimacs, c.Lang)
	assert.Equal(t, []string{"a", "b"}, c.IncludeDirs)
	assert.Equal(t, "j.db", c.DB)
	assert.Equal(t, "m.prom", c.MetricsFile)
	assert.True(t, c.Debug)
}

func TestFlags_OverrideConfigFile(t *testing.T) {
	f := parseFlags(t,
		"--config", filepath.Join("testdata", "full.cue"),
		"--max-warn", "0", "--warn", "shadowing=enabled", "-I", "extra",
	)

	c, err := f.Resolve("in.stz")
	require.NoError(t, err)

	assert.Equal(t, 0, c.MaxWarnings)
	assert.Equal(t, 30*time.Second, c.Time, "unset flags keep the file value")
	assert.Equal(t, report.Contextual, c.Style)
	assert.Equal(t, []string{"all=disabled", "shadowing=fatal", "shadowing=enabled"}, c.Warnings)
	assert.Equal(t, []string{"lib", "vendor/lib", "extra"}, c.IncludeDirs)

	reports, err := c.Reports()
	require.NoError(t, err)
	assert.Equal(t, report.Enabled, reports.Status(report.Shadowing))
	assert.Equal(t, report.Disabled, reports.Status(report.UnknownLogic))
}

func TestFlags_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"time", []string{"--time", "soon"}, "--time"},
		{"size", []string{"--size", "0"}, "--size"},
		{"max-warn", []string{"--max-warn", "-2"}, "--max-warn"},
		{"style", []string{"--style", "fancy"}, "--style"},
		{"lang", []string{"--lang", "lisp"}, "--lang"},
		{"warn", []string{"--warn", "nope=fatal"}, "--warn"},
		{"config", []string{"--config", filepath.Join("testdata", "missing.cue")}, "read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(t, tt.args...).Resolve("in.stz")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
