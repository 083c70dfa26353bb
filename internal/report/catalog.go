// Package report defines the catalog of warnings and errors a run can emit,
// the per-warning severity policy, and how diagnostics are rendered.
//
// Warnings have a default severity that a Conf can override: disabled,
// enabled, or fatal. Errors are always fatal. Each error carries an exit
// Code; a fatal diagnostic surfaces as *ExitError so the process can exit
// with that code after the message is printed.
package report

import (
	"fmt"
	"sort"
)

// Code is a process exit code with a category name.
type Code struct {
	Category string
	Exit     int
}

// Exit codes by category. 2 is reserved for command-line errors.
var (
	CodeGeneric   = Code{Category: "generic", Exit: 1}
	CodeParsing   = Code{Category: "parsing", Exit: 3}
	CodeTyping    = Code{Category: "typing", Exit: 4}
	CodeLimit     = Code{Category: "limit", Exit: 5}
	CodeInterrupt = Code{Category: "interrupt", Exit: 6}
	CodeInternal  = Code{Category: "internal", Exit: 125}
)

// Warning is a warning kind.
type Warning struct {
	// Mnemonic names the warning on the command line and in minimal output.
	Mnemonic string

	// Code is used when the warning is escalated to fatal.
	Code Code

	// Default is the severity when no override applies.
	Default Severity

	// Message renders the payload.
	Message func(payload any) string

	// Hint optionally renders a follow-up line; empty means none.
	Hint func(payload any) string
}

// Error is an error kind.
type Error struct {
	Mnemonic string
	Code     Code
	Message  func(payload any) string
	Hint     func(payload any) string
}

func text(format string) func(any) string {
	return func(p any) string { return fmt.Sprintf(format, p) }
}

func fixed(msg string) func(any) string {
	return func(any) string { return msg }
}

// Warnings.
var (
	Shadowing = &Warning{
		Mnemonic: "shadowing",
		Code:     CodeTyping,
		Default:  Enabled,
		Message:  text("symbol %q shadows an earlier declaration"),
		Hint:     fixed("the new declaration replaces the previous one"),
	}
	UnknownLogic = &Warning{
		Mnemonic: "unknown-logic",
		Code:     CodeTyping,
		Default:  Enabled,
		Message:  text("unknown logic %q, continuing with no restriction"),
	}
	EmptyInclude = &Warning{
		Mnemonic: "empty-include",
		Code:     CodeGeneric,
		Default:  Disabled,
		Message:  text("included file %q contains no statement"),
	}
	ItemFailure = &Warning{
		Mnemonic: "item-failure",
		Code:     CodeInternal,
		Default:  Enabled,
		Message:  text("statement processing failed: %v"),
		Hint:     fixed("processing continues with the next statement; use --warn item-failure=fatal to stop instead"),
	}
)

// Errors.
var (
	ParseError = &Error{
		Mnemonic: "parse-error",
		Code:     CodeParsing,
		Message:  text("parse error: %v"),
	}
	UnknownLanguage = &Error{
		Mnemonic: "unknown-language",
		Code:     CodeGeneric,
		Message:  text("cannot detect the input language of %q"),
		Hint:     fixed("use --lang to set it explicitly"),
	}
	FileNotFound = &Error{
		Mnemonic: "file-not-found",
		Code:     CodeGeneric,
		Message:  text("file %q not found"),
		Hint:     fixed("include paths are resolved against the including file's directory and each -I directory"),
	}
	UnboundIdentifier = &Error{
		Mnemonic: "unbound-identifier",
		Code:     CodeTyping,
		Message:  text("unbound identifier %q"),
		Hint:     fixed("declare it before use"),
	}
	LiteralOutOfRange = &Error{
		Mnemonic: "literal-out-of-range",
		Code:     CodeTyping,
		Message:  text("literal %v is outside the range declared in the header"),
	}
	TimeLimit = &Error{
		Mnemonic: "time-limit",
		Code:     CodeLimit,
		Message:  text("time limit reached: %v"),
	}
	SpaceLimit = &Error{
		Mnemonic: "space-limit",
		Code:     CodeLimit,
		Message:  text("memory limit reached: %v"),
	}
	Interrupted = &Error{
		Mnemonic: "interrupted",
		Code:     CodeInterrupt,
		Message:  fixed("user interrupt"),
	}
	Uncaught = &Error{
		Mnemonic: "uncaught-exception",
		Code:     CodeInternal,
		Message:  text("uncaught failure: %v"),
		Hint:     fixed("this is a bug, please report it"),
	}
)

var warnings = map[string]*Warning{}

func init() {
	for _, w := range []*Warning{Shadowing, UnknownLogic, EmptyInclude, ItemFailure} {
		warnings[w.Mnemonic] = w
	}
}

// LookupWarning finds a warning kind by mnemonic.
func LookupWarning(mnemonic string) (*Warning, bool) {
	w, ok := warnings[mnemonic]
	return w, ok
}

// WarningMnemonics lists every known warning mnemonic, sorted.
func WarningMnemonics() []string {
	names := make([]string, 0, len(warnings))
	for name := range warnings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
