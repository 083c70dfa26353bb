package pipeline

import (
	"errors"
	"fmt"
)

// ErrFixDepthExceeded is wrapped by the failure raised when fixpoint
// expansions nest deeper than the evaluator's quota.
var ErrFixDepthExceeded = errors.New("fixpoint expansion depth exceeded")

// Failure is a stage failure captured by the evaluator: an error returned by
// the stage or a panic raised inside it, with the stack at the point of
// capture.
type Failure struct {
	// Stage names the op that failed.
	Stage string

	// Err is the underlying error. For panics it is a *PanicError.
	Err error

	// Trace is the goroutine stack captured when the failure was wrapped.
	Trace []byte
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Stage == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("stage %s: %v", f.Stage, f.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// PanicError carries a value recovered from a panicking stage.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// AsFailure returns the *Failure wrapped in err, if any.
// Uses errors.As to handle wrapped errors.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsPanic reports whether err came from a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
