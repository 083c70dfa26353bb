package governor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// Sentinel causes. A *LimitError unwraps to exactly one of them.
var (
	ErrTimeExceeded  = errors.New("time limit exceeded")
	ErrSpaceExceeded = errors.New("space limit exceeded")
	ErrInterrupted   = errors.New("interrupted")
)

// errTornDown is the cause recorded when Teardown ends a handle that no
// limit tripped.
var errTornDown = errors.New("governor torn down")

// LimitKind identifies which limit tripped.
type LimitKind string

const (
	KindTime      LimitKind = "time"
	KindSpace     LimitKind = "space"
	KindInterrupt LimitKind = "interrupt"
)

// LimitError is the cancellation cause delivered when a limit trips.
type LimitError struct {
	Kind LimitKind

	// Time is the armed wall-clock limit (KindTime).
	Time time.Duration

	// Size is the armed heap limit and Used the sampled heap (KindSpace).
	Size uint64
	Used uint64

	// Signal is the received signal (KindInterrupt).
	Signal os.Signal
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	switch e.Kind {
	case KindTime:
		return fmt.Sprintf("%v (limit %s)", ErrTimeExceeded, e.Time)
	case KindSpace:
		return fmt.Sprintf("%v (%s used, limit %s)", ErrSpaceExceeded,
			humanize.IBytes(e.Used), humanize.IBytes(e.Size))
	case KindInterrupt:
		if e.Signal != nil {
			return fmt.Sprintf("%v (%s)", ErrInterrupted, e.Signal)
		}
		return ErrInterrupted.Error()
	default:
		return fmt.Sprintf("limit %q exceeded", string(e.Kind))
	}
}

// Unwrap maps the kind to its sentinel.
func (e *LimitError) Unwrap() error {
	switch e.Kind {
	case KindTime:
		return ErrTimeExceeded
	case KindSpace:
		return ErrSpaceExceeded
	case KindInterrupt:
		return ErrInterrupted
	default:
		return nil
	}
}

// AsLimitError returns the *LimitError wrapped in err, if any.
func AsLimitError(err error) (*LimitError, bool) {
	var le *LimitError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsTimeExceeded reports whether err is a wall-clock limit failure.
func IsTimeExceeded(err error) bool { return errors.Is(err, ErrTimeExceeded) }

// IsSpaceExceeded reports whether err is a heap limit failure.
func IsSpaceExceeded(err error) bool { return errors.Is(err, ErrSpaceExceeded) }

// IsInterrupt reports whether err is a user interrupt.
func IsInterrupt(err error) bool { return errors.Is(err, ErrInterrupted) }
