package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/roach88/stanza/internal/config"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/runner"
	"github.com/roach88/stanza/internal/store"
	"github.com/roach88/stanza/internal/testutil"
)

// journalFile is the journal each scenario records unless its args set --db.
const journalFile = "journal.db"

// Harness runs scenarios one after another with the same deterministic
// clock, rewound before each scenario.
type Harness struct {
	clock *testutil.DeterministicClock
}

// New creates a Harness.
func New() *Harness {
	return &Harness{clock: testutil.NewDeterministicClock()}
}

// Run executes a scenario with a fresh Harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a scenario and checks its expectations.
//
// Execution flow:
//  1. Write the scenario files to a fresh temporary directory
//  2. Resolve the run configuration from the scenario args
//  3. Run the entry with the scenario name as run ID
//  4. Read back the journal and check the expectations
//
// A returned error means the scenario could not be executed; a run that
// fails its expectations is reported in Result.Errors.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "stanza-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Error("error removing scenario dir", "dir", dir, "error", err)
		}
	}()

	if err := writeFiles(dir, scenario.Files); err != nil {
		return nil, err
	}
	cfg, err := resolveConfig(dir, scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	h.clock.Reset()
	var stdout, stderr bytes.Buffer
	streams := runner.Streams{
		Stdin:  strings.NewReader(scenario.Stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	}
	_, runErr := runner.Run(ctx, cfg, streams, runner.Options{
		RunIDs: testutil.NewFixedRunIDs(scenario.Name),
		Clock:  h.clock,
	})

	result := NewResult(scenario)
	if runErr != nil {
		code, ok := report.ExitCode(runErr)
		if !ok {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, runErr)
		}
		result.ExitCode = code
	}

	strip := strings.NewReplacer(dir+string(filepath.Separator), "")
	result.Stdout = strip.Replace(stdout.String())
	result.Stderr = strip.Replace(stderr.String())
	if result.Journal, err = readJournal(ctx, cfg.DB, scenario.Name); err != nil {
		return nil, err
	}

	result.check(scenario.Expect)
	return result, nil
}

// writeFiles creates every scenario file under dir.
func writeFiles(dir string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to write scenario file %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write scenario file %s: %w", name, err)
		}
	}
	return nil
}

// resolveConfig parses the scenario args the way `stanza run` does and
// anchors relative paths in dir.
func resolveConfig(dir string, scenario *Scenario) (config.Config, error) {
	fs := pflag.NewFlagSet(scenario.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := config.BindFlags(fs)
	if err := fs.Parse(scenario.Args); err != nil {
		return config.Config{}, fmt.Errorf("args: %w", err)
	}
	if fs.NArg() > 0 {
		return config.Config{}, fmt.Errorf("args: unexpected argument %q, the input is the entry", fs.Arg(0))
	}
	flags.ConfigFile = inDir(dir, flags.ConfigFile)

	input := StdinEntry
	if scenario.Entry != StdinEntry {
		input = filepath.Join(dir, scenario.Entry)
	}
	cfg, err := flags.Resolve(input)
	if err != nil {
		return config.Config{}, err
	}

	includeDirs := make([]string, len(cfg.IncludeDirs))
	for i, d := range cfg.IncludeDirs {
		includeDirs[i] = inDir(dir, d)
	}
	cfg.IncludeDirs = includeDirs
	if cfg.DB == "" {
		cfg.DB = journalFile
	}
	cfg.DB = inDir(dir, cfg.DB)
	cfg.MetricsFile = inDir(dir, cfg.MetricsFile)
	return cfg, nil
}

func inDir(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// readJournal returns the items the run recorded.
func readJournal(ctx context.Context, path, runID string) ([]store.Item, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("error closing journal", "error", err)
		}
	}()
	return s.ListItems(ctx, runID)
}
