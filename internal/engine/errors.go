package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/stanza/internal/report"
)

// RuntimeError is returned by Run when the Finally hook escalates a failed
// item. Err is the hook's error; a fatal diagnostic stays reachable through
// errors.As as a *report.ExitError.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID and Seq identify the item that was being processed.
	RunID string
	Seq   int64

	// Stage names the failing stage, if known.
	Stage string

	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeEscalated means the hook turned an item failure into a stop.
	ErrCodeEscalated RuntimeErrorCode = "ESCALATED"

	// ErrCodeFatalDiagnostic means the hook stopped on a fatal diagnostic.
	ErrCodeFatalDiagnostic RuntimeErrorCode = "FATAL_DIAGNOSTIC"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s (run=%s, seq=%d, stage=%s): %v", e.Code, e.Message, e.RunID, e.Seq, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s (run=%s, seq=%d): %v", e.Code, e.Message, e.RunID, e.Seq, e.Err)
}

// Unwrap returns the hook's error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// AsRuntimeError returns the *RuntimeError wrapped in err, if any.
// Uses errors.As to handle wrapped errors.
func AsRuntimeError(err error) (*RuntimeError, bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsEscalation reports whether err is a hook escalation of any kind.
func IsEscalation(err error) bool {
	_, ok := AsRuntimeError(err)
	return ok
}

func newEscalation(runID string, seq int64, stage string, err error) *RuntimeError {
	re := &RuntimeError{
		Code:    ErrCodeEscalated,
		Message: "item failure escalated",
		RunID:   runID,
		Seq:     seq,
		Stage:   stage,
		Err:     err,
	}
	if report.IsExit(err) {
		re.Code = ErrCodeFatalDiagnostic
		re.Message = "fatal diagnostic"
	}
	return re
}
