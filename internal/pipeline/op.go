package pipeline

import (
	"context"

	"github.com/roach88/stanza/internal/state"
)

// Unit is the output type of pipelines run only for their effect on state.
type Unit = struct{}

// StageFunc is the function wrapped by an Op.
type StageFunc[A, B any] func(ctx context.Context, st state.State, a A) (state.State, B, error)

// Producer is a pull-based item source. It returns the updated state and
// either an item (ok == true) or end of input (ok == false).
type Producer[A any] func(ctx context.Context, st state.State) (state.State, A, bool, error)

// Op is a named stage. Ops are built once, at assembly time.
type Op[A, B any] struct {
	name string
	fn   StageFunc[A, B]
}

// NewOp wraps fn as a stage called name.
func NewOp[A, B any](name string, fn StageFunc[A, B]) Op[A, B] {
	return Op[A, B]{name: name, fn: fn}
}

// Name returns the stage name.
func (o Op[A, B]) Name() string {
	return o.name
}

// Pure wraps a plain function; the state passes through untouched.
func Pure[A, B any](name string, f func(A) B) Op[A, B] {
	return NewOp(name, func(_ context.Context, st state.State, a A) (state.State, B, error) {
		return st, f(a), nil
	})
}

// Effect runs f for its side effect and passes the input through unchanged.
func Effect[A any](name string, f func(ctx context.Context, st state.State, a A) error) Op[A, A] {
	return NewOp(name, func(ctx context.Context, st state.State, a A) (state.State, A, error) {
		if err := f(ctx, st, a); err != nil {
			return st, a, err
		}
		return st, a, nil
	})
}

// Guard builds an early-exit stage for use with Cont. When done reports true
// the input is returned as the final value and the rest of the pipeline is
// skipped; otherwise f runs and its output continues.
func Guard[A, B any](name string, done func(st state.State, a A) bool, f StageFunc[A, B]) Op[A, Signal[B, A]] {
	return NewOp(name, func(ctx context.Context, st state.State, a A) (state.State, Signal[B, A], error) {
		if done(st, a) {
			return st, Done[B](a), nil
		}
		next, b, err := f(ctx, st, a)
		if err != nil {
			return st, Signal[B, A]{}, err
		}
		return next, Continue[B, A](b), nil
	})
}

// Signal is the result of an early-exit stage: either Continue with a value
// for the rest of the pipeline, or Done with the pipeline's final value.
type Signal[B, C any] struct {
	done  bool
	next  B
	final C
}

// Continue proceeds into the rest of the pipeline with b.
func Continue[B, C any](b B) Signal[B, C] {
	return Signal[B, C]{next: b}
}

// Done skips the rest of the pipeline and returns c.
func Done[B, C any](c C) Signal[B, C] {
	return Signal[B, C]{done: true, final: c}
}

// IsDone reports whether the signal short-circuits.
func (s Signal[B, C]) IsDone() bool {
	return s.done
}

// MergeFunc combines the state from before a fixpoint stage with the state
// produced by folding the rest of the pipeline over the expansion.
type MergeFunc func(before, after state.State) state.State

// Expansion is the result of a fixpoint stage.
type Expansion[A any] struct {
	gen   Producer[A]
	merge MergeFunc
}

// NoExpansion leaves the input as is: the rest of the pipeline runs once on it.
func NoExpansion[A any]() Expansion[A] {
	return Expansion[A]{}
}

// Expand makes the rest of the pipeline run once per item pulled from gen.
// A nil merge keeps the folded state.
func Expand[A any](merge MergeFunc, gen Producer[A]) Expansion[A] {
	return Expansion[A]{gen: gen, merge: merge}
}

// Expands reports whether the expansion carries a generator.
func (e Expansion[A]) Expands() bool {
	return e.gen != nil
}

// KeepAfter is a MergeFunc that keeps the folded state.
func KeepAfter(_, after state.State) state.State {
	return after
}

// FromSlice returns a producer yielding items in order. The position is kept
// in the closure, so a FromSlice producer is single-use.
func FromSlice[A any](items []A) Producer[A] {
	i := 0
	return func(_ context.Context, st state.State) (state.State, A, bool, error) {
		if i >= len(items) {
			var zero A
			return st, zero, false, nil
		}
		item := items[i]
		i++
		return st, item, true, nil
	}
}
