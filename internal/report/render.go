package report

import (
	"errors"
	"fmt"
	"io"
)

// ExitError is the outcome of a fatal diagnostic: the message has been
// printed and the process is expected to exit with Code.Exit.
type ExitError struct {
	Mnemonic string
	Code     Code
	Message  string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Mnemonic, e.Message)
}

// ExitCode extracts the exit code of a fatal diagnostic wrapped in err.
func ExitCode(err error) (int, bool) {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code.Exit, true
	}
	return 0, false
}

// IsExit reports whether err wraps a fatal diagnostic.
func IsExit(err error) bool {
	_, ok := ExitCode(err)
	return ok
}

// WriteWarning renders a warning.
func WriteWarning(w io.Writer, style Style, loc Loc, kind *Warning, payload any) {
	write(w, style, loc, "W", "Warning", kind.Mnemonic, kind.Message(payload), hint(kind.Hint, payload))
}

// WriteError renders an error and returns the matching *ExitError.
func WriteError(w io.Writer, style Style, loc Loc, kind *Error, payload any) *ExitError {
	msg := kind.Message(payload)
	write(w, style, loc, "E", "Error", kind.Mnemonic, msg, hint(kind.Hint, payload))
	return &ExitError{Mnemonic: kind.Mnemonic, Code: kind.Code, Message: msg}
}

// WriteFatalWarning renders a warning escalated to fatal and returns the
// matching *ExitError.
func WriteFatalWarning(w io.Writer, style Style, loc Loc, kind *Warning, payload any) *ExitError {
	msg := kind.Message(payload)
	write(w, style, loc, "E", "Error", kind.Mnemonic, msg, hint(kind.Hint, payload))
	return &ExitError{Mnemonic: kind.Mnemonic, Code: kind.Code, Message: msg}
}

// WriteSummary renders the suppressed-warnings summary.
func WriteSummary(w io.Writer, style Style, max, hidden int) {
	if style == Minimal {
		fmt.Fprintf(w, "W:+%d\n", hidden)
		return
	}
	fmt.Fprintf(w, "Over the limit of %d warnings, hid %d\n", max, hidden)
}

func hint(f func(any) string, payload any) string {
	if f == nil {
		return ""
	}
	return f(payload)
}

func write(w io.Writer, style Style, loc Loc, short, label, mnemonic, msg, hint string) {
	if style == Minimal {
		fmt.Fprintf(w, "%s:%s\n", short, mnemonic)
		return
	}
	if !loc.IsZero() {
		fmt.Fprintf(w, "%s:\n", loc)
		if style == Contextual {
			loc.writeContext(w)
		}
	}
	fmt.Fprintf(w, "%s[%s]: %s\n", label, mnemonic, msg)
	if hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}
