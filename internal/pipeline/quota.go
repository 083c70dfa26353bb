package pipeline

import "fmt"

// DefaultMaxFixDepth bounds how deeply fixpoint expansions may nest within a
// single evaluation (e.g. a chain of includes).
const DefaultMaxFixDepth = 64

// fixQuota tracks fixpoint nesting for one evaluation.
//
// Each Expand descends one level; the level is released when the fold over
// that generator finishes, successfully or not. A zero max disables the
// check.
type fixQuota struct {
	max     int
	current int
}

func newFixQuota(max int) *fixQuota {
	return &fixQuota{max: max}
}

// enter claims one level of nesting for the stage named stage.
func (q *fixQuota) enter(stage string) error {
	if q.max > 0 && q.current >= q.max {
		return &FixDepthError{Stage: stage, Depth: q.current + 1, Limit: q.max}
	}
	q.current++
	return nil
}

func (q *fixQuota) leave() {
	if q.current > 0 {
		q.current--
	}
}

// Depth returns the current nesting level.
func (q *fixQuota) Depth() int {
	return q.current
}

// FixDepthError is returned when an expansion would nest past the limit.
type FixDepthError struct {
	Stage string // The fixpoint stage that tried to expand
	Depth int    // Depth the expansion would have reached
	Limit int    // Maximum allowed depth
}

// Error implements the error interface.
func (e *FixDepthError) Error() string {
	return fmt.Sprintf("%v: stage %s would reach depth %d > %d limit",
		ErrFixDepthExceeded, e.Stage, e.Depth, e.Limit)
}

// Unwrap makes errors.Is(err, ErrFixDepthExceeded) hold.
func (e *FixDepthError) Unwrap() error {
	return ErrFixDepthExceeded
}
