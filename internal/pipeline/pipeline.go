package pipeline

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/roach88/stanza/internal/state"
)

// Pipeline is an immutable composition of stages taking A to B. The method
// set is unexported: the only pipelines are the ones built by End, Map, Cont,
// Concat, Fix, Branch and Rec.
type Pipeline[A, B any] interface {
	eval(ctx context.Context, ev *evaluator, st state.State, a A) (state.State, B, error)
	stages(dst []string) []string
}

// End is the terminal pipeline: it returns its input unchanged.
func End[A any]() Pipeline[A, A] {
	return end[A]{}
}

// Map applies op, then rest on op's output.
func Map[A, B, C any](op Op[A, B], rest Pipeline[B, C]) Pipeline[A, C] {
	return mapped[A, B, C]{op: op, rest: rest}
}

// Cont applies op; a Done signal returns its value and skips rest, a
// Continue signal runs rest on its value.
func Cont[A, B, C any](op Op[A, Signal[B, C]], rest Pipeline[B, C]) Pipeline[A, C] {
	return cont[A, B, C]{op: op, rest: rest}
}

// Concat runs first, then second on its output.
func Concat[A, B, C any](first Pipeline[A, B], second Pipeline[B, C]) Pipeline[A, C] {
	return concat[A, B, C]{first: first, second: second}
}

// Fix applies op; see Expansion for how rest is then run.
func Fix[A any](op Op[A, Expansion[A]], rest Pipeline[A, Unit]) Pipeline[A, Unit] {
	return fix[A]{op: op, rest: rest}
}

// Branch runs then when pred holds for the input and otherwise runs
// otherwise. pred must be pure; it is not a stage.
func Branch[A, B any](pred func(A) bool, then, otherwise Pipeline[A, B]) Pipeline[A, B] {
	return branch[A, B]{pred: pred, then: then, otherwise: otherwise}
}

// Rec builds a pipeline that refers to itself through self, for
// expansions whose items must run through the whole pipeline again, such as
// nested includes. build is called once; self must only be evaluated, not
// inspected, while build runs.
func Rec[A any](build func(self Pipeline[A, Unit]) Pipeline[A, Unit]) Pipeline[A, Unit] {
	r := &rec[A]{}
	r.body = build(selfRef[A]{r: r})
	return r
}

// Stages lists the stage names of p in evaluation order. A Rec
// self-reference contributes no names.
func Stages[A, B any](p Pipeline[A, B]) []string {
	return p.stages(nil)
}

type end[A any] struct{}

func (end[A]) eval(_ context.Context, _ *evaluator, st state.State, a A) (state.State, A, error) {
	return st, a, nil
}

func (end[A]) stages(dst []string) []string { return dst }

type mapped[A, B, C any] struct {
	op   Op[A, B]
	rest Pipeline[B, C]
}

func (p mapped[A, B, C]) eval(ctx context.Context, ev *evaluator, st state.State, a A) (state.State, C, error) {
	st, b, err := apply(ctx, ev, p.op, st, a)
	if err != nil {
		var zero C
		return st, zero, err
	}
	return p.rest.eval(ctx, ev, st, b)
}

func (p mapped[A, B, C]) stages(dst []string) []string {
	return p.rest.stages(append(dst, p.op.name))
}

type cont[A, B, C any] struct {
	op   Op[A, Signal[B, C]]
	rest Pipeline[B, C]
}

func (p cont[A, B, C]) eval(ctx context.Context, ev *evaluator, st state.State, a A) (state.State, C, error) {
	st, sig, err := apply(ctx, ev, p.op, st, a)
	if err != nil {
		var zero C
		return st, zero, err
	}
	if sig.done {
		return st, sig.final, nil
	}
	return p.rest.eval(ctx, ev, st, sig.next)
}

func (p cont[A, B, C]) stages(dst []string) []string {
	return p.rest.stages(append(dst, p.op.name))
}

type concat[A, B, C any] struct {
	first  Pipeline[A, B]
	second Pipeline[B, C]
}

func (p concat[A, B, C]) eval(ctx context.Context, ev *evaluator, st state.State, a A) (state.State, C, error) {
	st, b, err := p.first.eval(ctx, ev, st, a)
	if err != nil {
		var zero C
		return st, zero, err
	}
	return p.second.eval(ctx, ev, st, b)
}

func (p concat[A, B, C]) stages(dst []string) []string {
	return p.second.stages(p.first.stages(dst))
}

type fix[A any] struct {
	op   Op[A, Expansion[A]]
	rest Pipeline[A, Unit]
}

func (p fix[A]) eval(ctx context.Context, ev *evaluator, before state.State, a A) (state.State, Unit, error) {
	st, exp, err := apply(ctx, ev, p.op, before, a)
	if err != nil {
		return st, Unit{}, err
	}
	if !exp.Expands() {
		return p.rest.eval(ctx, ev, st, a)
	}

	if err := ev.quota.enter(p.op.name); err != nil {
		return st, Unit{}, wrapFailure(p.op.name, err)
	}
	defer ev.quota.leave()

	acc := st
	for {
		next, item, ok, err := pull(ctx, ev, p.op.name, exp.gen, acc)
		if err != nil {
			return acc, Unit{}, err
		}
		acc = next
		if !ok {
			break
		}
		acc, _, err = p.rest.eval(ctx, ev, acc, item)
		if err != nil {
			return acc, Unit{}, err
		}
	}

	merge := exp.merge
	if merge == nil {
		merge = KeepAfter
	}
	merged, err := guard(p.op.name, acc, func() state.State { return merge(before, acc) })
	if err != nil {
		return acc, Unit{}, err
	}
	return merged, Unit{}, nil
}

func (p fix[A]) stages(dst []string) []string {
	return p.rest.stages(append(dst, p.op.name))
}

type branch[A, B any] struct {
	pred            func(A) bool
	then, otherwise Pipeline[A, B]
}

func (p branch[A, B]) eval(ctx context.Context, ev *evaluator, st state.State, a A) (state.State, B, error) {
	if p.pred(a) {
		return p.then.eval(ctx, ev, st, a)
	}
	return p.otherwise.eval(ctx, ev, st, a)
}

func (p branch[A, B]) stages(dst []string) []string {
	return p.otherwise.stages(p.then.stages(dst))
}

type rec[A any] struct {
	body Pipeline[A, Unit]
}

func (r *rec[A]) eval(ctx context.Context, ev *evaluator, st state.State, a A) (state.State, Unit, error) {
	return r.body.eval(ctx, ev, st, a)
}

func (r *rec[A]) stages(dst []string) []string { return r.body.stages(dst) }

type selfRef[A any] struct {
	r *rec[A]
}

func (s selfRef[A]) eval(ctx context.Context, ev *evaluator, st state.State, a A) (state.State, Unit, error) {
	return s.r.body.eval(ctx, ev, st, a)
}

func (selfRef[A]) stages(dst []string) []string { return dst }

// EvalOption configures an evaluation.
type EvalOption func(*evaluator)

// WithObserver installs an observer called around every stage. Observers
// from repeated options are all called, in order.
func WithObserver(o Observer) EvalOption {
	return func(ev *evaluator) {
		if ev.observer == nil {
			ev.observer = o
			return
		}
		ev.observer = Observers(ev.observer, o)
	}
}

// WithMaxFixDepth sets the fixpoint nesting quota. Zero disables it.
func WithMaxFixDepth(n int) EvalOption {
	return func(ev *evaluator) {
		ev.quota = newFixQuota(n)
	}
}

// WithStageLock makes every stage and fixpoint pull run while holding l.
// Whoever takes l after ctx is cancelled knows no stage of this evaluation
// is running, and none will start.
func WithStageLock(l sync.Locker) EvalOption {
	return func(ev *evaluator) {
		ev.lock = l
	}
}

type evaluator struct {
	observer Observer
	quota    *fixQuota
	lock     sync.Locker
}

// enter takes the stage lock and checks for cancellation. Stage boundaries
// are the evaluation's safe points: once ctx is cancelled no further stage
// starts.
func (ev *evaluator) enter(ctx context.Context, stage string) (release func(), err error) {
	release = func() {}
	if ev.lock != nil {
		ev.lock.Lock()
		release = ev.lock.Unlock
	}
	if ctx.Err() != nil {
		release()
		return nil, &Failure{Stage: stage, Err: context.Cause(ctx)}
	}
	return release, nil
}

// Eval runs p on (st, a). On failure the error is a *Failure and the
// returned state is the last one produced before the failing stage. A
// cancelled ctx fails the next stage to start with context.Cause(ctx).
func Eval[A, B any](ctx context.Context, p Pipeline[A, B], st state.State, a A, opts ...EvalOption) (state.State, B, error) {
	ev := &evaluator{quota: newFixQuota(DefaultMaxFixDepth)}
	for _, opt := range opts {
		opt(ev)
	}
	return p.eval(ctx, ev, st, a)
}

// apply runs one stage under the uniform failure wrapper.
func apply[A, B any](ctx context.Context, ev *evaluator, op Op[A, B], st state.State, a A) (out state.State, b B, err error) {
	release, err := ev.enter(ctx, op.name)
	if err != nil {
		return st, b, err
	}
	defer release()

	depth := ev.quota.Depth()
	if ev.observer != nil {
		ev.observer.BeforeStage(ctx, op.name, depth)
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			if state.IsUnbound(r) {
				panic(r)
			}
			out = st
			err = &Failure{Stage: op.name, Err: &PanicError{Value: r}, Trace: debug.Stack()}
		}
		if ev.observer != nil {
			ev.observer.AfterStage(ctx, op.name, depth, err, time.Since(start))
		}
	}()

	out, b, err = op.fn(ctx, st, a)
	if err != nil {
		return st, b, wrapFailure(op.name, err)
	}
	return out, b, nil
}

// pull draws one item from a fixpoint generator under the failure wrapper.
func pull[A any](ctx context.Context, ev *evaluator, stage string, gen Producer[A], st state.State) (out state.State, item A, ok bool, err error) {
	release, err := ev.enter(ctx, stage)
	if err != nil {
		return st, item, false, err
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			if state.IsUnbound(r) {
				panic(r)
			}
			out, ok = st, false
			err = &Failure{Stage: stage, Err: &PanicError{Value: r}, Trace: debug.Stack()}
		}
	}()
	out, item, ok, err = gen(ctx, st)
	if err != nil {
		return st, item, false, wrapFailure(stage, err)
	}
	return out, item, ok, nil
}

// guard runs a state-producing callback under the failure wrapper.
func guard(stage string, fallback state.State, f func() state.State) (out state.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			if state.IsUnbound(r) {
				panic(r)
			}
			out = fallback
			err = &Failure{Stage: stage, Err: &PanicError{Value: r}, Trace: debug.Stack()}
		}
	}()
	return f(), nil
}

// wrapFailure turns err into a *Failure unless a nested evaluation already did.
func wrapFailure(stage string, err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{Stage: stage, Err: err, Trace: debug.Stack()}
}
