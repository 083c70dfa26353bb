package report

import (
	"fmt"
	"maps"
	"strings"
)

// Severity is how a warning is treated.
type Severity int

const (
	// Disabled warnings are dropped.
	Disabled Severity = iota
	// Enabled warnings are printed and counted against the ceiling.
	Enabled
	// Fatal warnings behave like errors.
	Fatal
)

var severityNames = map[Severity]string{
	Disabled: "disabled",
	Enabled:  "enabled",
	Fatal:    "fatal",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity accepts "disabled", "enabled" or "fatal" (and "off"/"on"/"error").
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off":
		return Disabled, nil
	case "enabled", "on":
		return Enabled, nil
	case "fatal", "error":
		return Fatal, nil
	default:
		return Disabled, fmt.Errorf("invalid severity %q: must be one of disabled, enabled, fatal", s)
	}
}

// Conf is the per-warning severity policy. Conf values are immutable: every
// setter returns a new Conf.
type Conf struct {
	overrides map[string]Severity
}

// NewConf returns a policy where every warning has its default severity.
func NewConf() Conf {
	return Conf{}
}

// Status returns the effective severity of w.
func (c Conf) Status(w *Warning) Severity {
	if s, ok := c.overrides[w.Mnemonic]; ok {
		return s
	}
	return w.Default
}

// With returns a copy of c with w set to s.
func (c Conf) With(w *Warning, s Severity) Conf {
	next := make(map[string]Severity, len(c.overrides)+1)
	maps.Copy(next, c.overrides)
	next[w.Mnemonic] = s
	return Conf{overrides: next}
}

// Apply parses a "mnemonic=severity" assignment and returns the updated
// policy. The mnemonic "all" applies to every known warning.
func (c Conf) Apply(assignment string) (Conf, error) {
	name, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return c, fmt.Errorf("invalid warning setting %q: expected name=severity", assignment)
	}
	sev, err := ParseSeverity(value)
	if err != nil {
		return c, err
	}
	name = strings.TrimSpace(name)
	if name == "all" {
		next := c
		for _, mnemonic := range WarningMnemonics() {
			w, _ := LookupWarning(mnemonic)
			next = next.With(w, sev)
		}
		return next, nil
	}
	w, ok := LookupWarning(name)
	if !ok {
		return c, fmt.Errorf("unknown warning %q: known warnings are %s", name, strings.Join(WarningMnemonics(), ", "))
	}
	return c.With(w, sev), nil
}

// Style is how much detail diagnostics carry.
type Style int

const (
	// Minimal prints only "W:mnemonic" or "E:mnemonic".
	Minimal Style = iota
	// Regular prints the location tag, message and hint.
	Regular
	// Contextual adds a source excerpt when one is available.
	Contextual
)

// ValidStyles lists the accepted style names.
var ValidStyles = []string{"minimal", "regular", "contextual"}

func (s Style) String() string {
	if int(s) >= 0 && int(s) < len(ValidStyles) {
		return ValidStyles[s]
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// ParseStyle converts a style name.
func ParseStyle(s string) (Style, error) {
	for i, name := range ValidStyles {
		if strings.EqualFold(s, name) {
			return Style(i), nil
		}
	}
	return Regular, fmt.Errorf("invalid style %q: must be one of %v", s, ValidStyles)
}
