package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/stanza/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation matched.
	Pass bool `json:"pass"`

	// Command is the equivalent command line.
	Command string `json:"command"`

	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`

	// Journal holds the items the run recorded, in seq order.
	Journal []store.Item `json:"journal"`

	// Errors contains expectation mismatches.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result for scenario.
func NewResult(scenario *Scenario) *Result {
	args := append([]string{"stanza", "run"}, scenario.Args...)
	return &Result{
		Pass:    true,
		Command: strings.Join(append(args, scenario.Entry), " "),
		Journal: []store.Item{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// check compares the run against e.
func (r *Result) check(e Expect) {
	if r.ExitCode != e.ExitCode {
		r.AddError(fmt.Sprintf("exit code: expected %d, got %d", e.ExitCode, r.ExitCode))
	}
	if e.Stdout != nil && *e.Stdout != r.Stdout {
		r.AddError(fmt.Sprintf("stdout: expected %q, got %q", *e.Stdout, r.Stdout))
	}
	for _, want := range e.StdoutContains {
		if !strings.Contains(r.Stdout, want) {
			r.AddError(fmt.Sprintf("stdout: missing %q in %q", want, r.Stdout))
		}
	}
	for _, want := range e.StderrContains {
		if !strings.Contains(r.Stderr, want) {
			r.AddError(fmt.Sprintf("stderr: missing %q in %q", want, r.Stderr))
		}
	}
}
