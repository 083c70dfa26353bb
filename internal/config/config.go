// Package config loads the run configuration: defaults, an optional CUE
// file checked against the embedded #Config schema, and the built-in state
// keys it seeds.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/dustin/go-humanize"

	"github.com/roach88/stanza/internal/engine"
	"github.com/roach88/stanza/internal/governor"
	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/report"
	"github.com/roach88/stanza/internal/state"
)

//go:embed schema.cue
var schemaSource string

// Unlimited is the spelling of a disabled limit.
const Unlimited = "unlimited"

// Config is the resolved run configuration.
type Config struct {
	Input       string
	Lang        ir.Language
	IncludeDirs []string

	Time        time.Duration
	Size        uint64
	MaxWarnings int
	Style       report.Style

	// Warnings are severity assignments in "name=severity" form, applied in
	// order.
	Warnings []string

	DB          string
	MetricsFile string
	Debug       bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Input:       "-",
		Time:        governor.NoTimeLimit,
		Size:        governor.NoSizeLimit,
		MaxWarnings: engine.DefaultMaxWarnings,
		Style:       report.Regular,
	}
}

// file mirrors #Config for decoding.
type file struct {
	Time        *string           `json:"time"`
	Size        *string           `json:"size"`
	MaxWarnings *int              `json:"max_warnings"`
	Style       *string           `json:"style"`
	Warnings    map[string]string `json:"warnings"`
	Lang        *string           `json:"lang"`
	IncludeDirs []string          `json:"include_dirs"`
	DB          *string           `json:"db"`
	MetricsFile *string           `json:"metrics_file"`
	Debug       *bool             `json:"debug"`
}

// Error is a configuration error, positioned in the CUE source when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads the CUE file at path over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse unifies src with #Config, requires the result to be concrete, and
// resolves it over the defaults. filename is used in error positions.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	v = schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var f file
	if err := v.Decode(&f); err != nil {
		return Config{}, formatCUEError(err)
	}
	return f.resolve(Default())
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	e := &Error{Field: strings.Join(first.Path(), "."), Message: first.Error()}
	if e.Field == "" {
		e.Field = "config"
	}
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		e.Pos = pos[0]
	}
	return e
}

func (f file) resolve(c Config) (Config, error) {
	var err error
	if f.Time != nil {
		if c.Time, err = ParseTime(*f.Time); err != nil {
			return Config{}, &Error{Field: "time", Message: err.Error()}
		}
	}
	if f.Size != nil {
		if c.Size, err = ParseSize(*f.Size); err != nil {
			return Config{}, &Error{Field: "size", Message: err.Error()}
		}
	}
	if f.MaxWarnings != nil {
		c.MaxWarnings = *f.MaxWarnings
	}
	if f.Style != nil {
		if c.Style, err = report.ParseStyle(*f.Style); err != nil {
			return Config{}, &Error{Field: "style", Message: err.Error()}
		}
	}
	if f.Lang != nil {
		if c.Lang, err = ir.ParseLanguage(*f.Lang); err != nil {
			return Config{}, &Error{Field: "lang", Message: err.Error()}
		}
	}
	c.IncludeDirs = append(c.IncludeDirs, f.IncludeDirs...)
	c.Warnings = append(c.Warnings, warningAssignments(f.Warnings)...)
	if f.DB != nil {
		c.DB = *f.DB
	}
	if f.MetricsFile != nil {
		c.MetricsFile = *f.MetricsFile
	}
	if f.Debug != nil {
		c.Debug = *f.Debug
	}
	return c, nil
}

// warningAssignments orders a severity map: "all" first, then by name.
func warningAssignments(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == "all":
			return -1
		case b == "all":
			return 1
		}
		return strings.Compare(a, b)
	})
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = name + "=" + m[name]
	}
	return out
}

// ParseTime parses a Go duration or "unlimited".
func ParseTime(s string) (time.Duration, error) {
	if s == Unlimited {
		return governor.NoTimeLimit, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("time limit must be positive, got %s", s)
	}
	return d, nil
}

// ParseSize parses a byte size such as "512MiB" or "unlimited".
func ParseSize(s string) (uint64, error) {
	if s == Unlimited {
		return governor.NoSizeLimit, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("size limit must be positive, got %s", s)
	}
	return n, nil
}

// FormatTime renders a time limit the way ParseTime reads it.
func FormatTime(d time.Duration) string {
	if d == governor.NoTimeLimit || d <= 0 {
		return Unlimited
	}
	return d.String()
}

// FormatSize renders a size limit the way ParseSize reads it.
func FormatSize(n uint64) string {
	if n == governor.NoSizeLimit || n == 0 {
		return Unlimited
	}
	return humanize.IBytes(n)
}

// Reports builds the warning policy.
func (c Config) Reports() (report.Conf, error) {
	conf := report.NewConf()
	for _, a := range c.Warnings {
		next, err := conf.Apply(a)
		if err != nil {
			return report.Conf{}, err
		}
		conf = next
	}
	return conf, nil
}

// Apply binds every built-in key from c. Diagnostics go to out and
// responses to rf.
func (c Config) Apply(st state.State, out io.Writer, rf ir.ResponseFile) (state.State, error) {
	reports, err := c.Reports()
	if err != nil {
		return st, err
	}
	st = state.Set(st, engine.Debug, c.Debug)
	st = state.Set(st, engine.Reports, reports)
	st = state.Set(st, engine.ReportStyle, c.Style)
	st = state.Set(st, engine.CurWarnings, 0)
	st = state.Set(st, engine.MaxWarnings, c.MaxWarnings)
	st = state.Set(st, engine.TimeLimit, c.Time)
	st = state.Set(st, engine.SizeLimit, c.Size)
	st = state.Set(st, engine.LogicFile, ir.LogicFile{Path: c.Input, Lang: c.Lang, IncludeDirs: c.IncludeDirs})
	st = state.Set(st, engine.ResponseFile, rf)
	st = state.Set(st, engine.Output, out)
	return st, nil
}
