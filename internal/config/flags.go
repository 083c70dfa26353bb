package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/roach88/stanza/internal/engine"
	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/report"
)

// Flags are the run flags shared by every command that processes an input.
// Flags set on the command line override the config file.
type Flags struct {
	ConfigFile  string
	Time        string
	Size        string
	MaxWarnings int
	Style       string
	Warnings    []string
	Lang        string
	IncludeDirs []string
	DB          string
	MetricsFile string
	Debug       bool

	fs *pflag.FlagSet
}

// BindFlags registers the run flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigFile, "config", "", "CUE configuration file")
	fs.StringVar(&f.Time, "time", Unlimited, `time limit per statement (Go duration or "unlimited")`)
	fs.StringVar(&f.Size, "size", Unlimited, `memory limit per statement (e.g. 512MiB or "unlimited")`)
	fs.IntVar(&f.MaxWarnings, "max-warn", engine.DefaultMaxWarnings, "number of warnings printed before the rest are hidden")
	fs.StringVar(&f.Style, "style", report.Regular.String(), "diagnostic style (minimal|regular|contextual)")
	fs.StringArrayVar(&f.Warnings, "warn", nil, "set a warning severity as name=disabled|enabled|fatal (repeatable)")
	fs.StringVar(&f.Lang, "lang", "", "input language (stanza|dimacs), detected from the extension when unset")
	fs.StringArrayVarP(&f.IncludeDirs, "include-dir", "I", nil, "add an include search directory (repeatable)")
	fs.StringVar(&f.DB, "db", "", "SQLite journal to record item outcomes in")
	fs.StringVar(&f.MetricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	fs.BoolVar(&f.Debug, "debug", false, "log every stage evaluation")
	return f
}

// Resolve builds the configuration for input: defaults, then the config
// file if one was given, then every flag that was set explicitly.
func (f *Flags) Resolve(input string) (Config, error) {
	c := Default()
	if f.ConfigFile != "" {
		var err error
		if c, err = Load(f.ConfigFile); err != nil {
			return Config{}, err
		}
	}
	if input != "" {
		c.Input = input
	}

	changed := f.fs.Changed
	var err error
	if changed("time") {
		if c.Time, err = ParseTime(f.Time); err != nil {
			return Config{}, flagError("time", err)
		}
	}
	if changed("size") {
		if c.Size, err = ParseSize(f.Size); err != nil {
			return Config{}, flagError("size", err)
		}
	}
	if changed("max-warn") {
		if f.MaxWarnings < 0 {
			return Config{}, flagError("max-warn", fmt.Errorf("must not be negative, got %d", f.MaxWarnings))
		}
		c.MaxWarnings = f.MaxWarnings
	}
	if changed("style") {
		if c.Style, err = report.ParseStyle(f.Style); err != nil {
			return Config{}, flagError("style", err)
		}
	}
	if changed("lang") {
		if c.Lang, err = ir.ParseLanguage(f.Lang); err != nil {
			return Config{}, flagError("lang", err)
		}
	}
	if changed("warn") {
		c.Warnings = append(c.Warnings, f.Warnings...)
		if _, err := c.Reports(); err != nil {
			return Config{}, flagError("warn", err)
		}
	}
	if changed("include-dir") {
		c.IncludeDirs = append(c.IncludeDirs, f.IncludeDirs...)
	}
	if changed("db") {
		c.DB = f.DB
	}
	if changed("metrics-file") {
		c.MetricsFile = f.MetricsFile
	}
	if changed("debug") {
		c.Debug = f.Debug
	}
	return c, nil
}

func flagError(name string, err error) error {
	return &Error{Field: "--" + name, Message: err.Error()}
}
