package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StdinEntry is the entry that reads the input from the scenario's stdin.
const StdinEntry = "-"

// Scenario defines one end-to-end run.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the run ID and the
	// golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Files maps relative paths to contents, written before the run.
	Files map[string]string `yaml:"files"`

	// Entry is the input file, or StdinEntry.
	Entry string `yaml:"entry"`

	// Stdin is fed to the run when Entry is StdinEntry.
	Stdin string `yaml:"stdin,omitempty"`

	// Args are `stanza run` flags, without the input argument.
	Args []string `yaml:"args,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect is what a run must produce.
type Expect struct {
	// ExitCode is the expected process exit code.
	ExitCode int `yaml:"exit_code"`

	// Stdout, when set, must equal the responses exactly.
	Stdout *string `yaml:"stdout,omitempty"`

	// StdoutContains and StderrContains list substrings that must appear.
	StdoutContains []string `yaml:"stdout_contains,omitempty"`
	StderrContains []string `yaml:"stderr_contains,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "stdout_contain:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Entry == "" {
		return fmt.Errorf("entry is required")
	}

	for name := range s.Files {
		if !filepath.IsLocal(name) {
			return fmt.Errorf("files: %q must be a relative path inside the scenario", name)
		}
	}

	if s.Expect.ExitCode < 0 {
		return fmt.Errorf("expect.exit_code must be non-negative")
	}

	if s.Entry == StdinEntry {
		return nil
	}
	if _, ok := s.Files[s.Entry]; !ok {
		return fmt.Errorf("entry %q is not one of the scenario files", s.Entry)
	}
	if s.Stdin != "" {
		return fmt.Errorf("stdin is only read when entry is %q", StdinEntry)
	}

	return nil
}
