package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/roach88/stanza/internal/governor"
	"github.com/roach88/stanza/internal/pipeline"
	"github.com/roach88/stanza/internal/state"
)

// stageProducer names failures raised while pulling the next item.
const stageProducer = "producer"

// Outcome describes one finished iteration of the run loop.
type Outcome[A any] struct {
	RunID string
	Seq   int64

	// Item is the pulled item. HasItem is false when the pull itself failed
	// or was preempted.
	Item    A
	HasItem bool

	Duration time.Duration

	// Failure is nil when the item succeeded.
	Failure *pipeline.Failure
}

// Failed reports whether the item failed.
func (o Outcome[A]) Failed() bool {
	return o.Failure != nil
}

// Finally is the recovery hook called after every item.
//
// After a success its error is logged and ignored, and the loop keeps the
// state it had before the hook ran. After a failure its error stops the run;
// returning a nil error resumes with the returned state.
type Finally[A any] func(st state.State, out Outcome[A]) (state.State, error)

// Option configures a Loop.
type Option func(*options)

type options struct {
	runIDs   RunIDGenerator
	clock    Sequencer
	flush    func() error
	govOpts  []governor.Option
	evalOpts []pipeline.EvalOption
	metrics  *Metrics
	grace    time.Duration
}

// DefaultStopGrace bounds how long a preempted item's running stage may
// take to return before the loop moves on without it.
const DefaultStopGrace = 500 * time.Millisecond

// WithRunIDs sets the run ID generator. Default: UUIDv7Generator.
func WithRunIDs(gen RunIDGenerator) Option {
	return func(o *options) {
		o.runIDs = gen
	}
}

// WithClock sets the clock that numbers items. Default: a new clock at 0.
func WithClock(c Sequencer) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithFlush installs a callback that writes pending buffered output. It runs
// after a failed item, before the hook sees the failure.
func WithFlush(flush func() error) Option {
	return func(o *options) {
		o.flush = flush
	}
}

// WithInterrupts turns any signal received on ch into an interrupt failure
// of the current item.
func WithInterrupts(ch <-chan os.Signal) Option {
	return WithGovernorOptions(governor.WithInterrupts(ch))
}

// WithProbeInterval sets how often the heap limit is sampled.
func WithProbeInterval(d time.Duration) Option {
	return WithGovernorOptions(governor.WithProbeInterval(d))
}

// WithGovernorOptions passes options to every governor the loop arms.
func WithGovernorOptions(opts ...governor.Option) Option {
	return func(o *options) {
		o.govOpts = append(o.govOpts, opts...)
	}
}

// WithEvalOptions passes options to every pipeline evaluation.
func WithEvalOptions(opts ...pipeline.EvalOption) Option {
	return func(o *options) {
		o.evalOpts = append(o.evalOpts, opts...)
	}
}

// WithStopGrace sets how long the loop waits, after preempting an item,
// for the stage that was running to return. Default: DefaultStopGrace.
func WithStopGrace(d time.Duration) Option {
	return func(o *options) {
		o.grace = d
	}
}

// WithMetrics records item counts and durations in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Loop drives a pipeline over the items of a producer.
//
// A Loop is single-use: its producer and clock carry the progress of one run.
type Loop[A any] struct {
	runID    string
	producer pipeline.Producer[A]
	pipe     pipeline.Pipeline[A, pipeline.Unit]
	finally  Finally[A]
	pullMu   sync.Mutex
	options
}

// New creates a Loop. The pipeline is built once and shared by every item.
func New[A any](producer pipeline.Producer[A], pipe pipeline.Pipeline[A, pipeline.Unit], finally Finally[A], opts ...Option) *Loop[A] {
	o := options{runIDs: UUIDv7Generator{}, grace: DefaultStopGrace}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = NewClock()
	}
	return &Loop[A]{
		runID:    o.runIDs.Generate(),
		producer: producer,
		pipe:     pipe,
		finally:  finally,
		options:  o,
	}
}

// RunID identifies this run in logs, metrics and the journal.
func (l *Loop[A]) RunID() string {
	return l.runID
}

// Run processes items until the producer is exhausted and returns the final
// state.
//
// Every iteration re-reads TimeLimit and SizeLimit from the current state,
// so st must have them bound (see DefaultState). It returns early with
// ctx.Err() when ctx is cancelled, and with a *RuntimeError when the
// Finally hook escalates a failure. An unbound key panics through Run.
func (l *Loop[A]) Run(ctx context.Context, st state.State) (state.State, error) {
	slog.Info("run starting", "run_id", l.runID)

	var succeeded, failed int
	for {
		if err := ctx.Err(); err != nil {
			slog.Info("run stopping: context cancelled", "run_id", l.runID, "succeeded", succeeded, "failed", failed)
			return st, err
		}

		h := governor.Setup(ctx, Limits(st), l.govOpts...)
		seq := l.clock.Next()
		start := time.Now()
		res := l.step(h, st, seq)
		h.Teardown()
		elapsed := time.Since(start)
		if res.preempted {
			l.quiesce(res.gate, seq)
		}

		if res.panicked != nil {
			panic(res.panicked)
		}
		if res.exhausted {
			slog.Info("run finished", "run_id", l.runID, "succeeded", succeeded, "failed", failed)
			return res.st, nil
		}

		out := Outcome[A]{
			RunID:    l.runID,
			Seq:      seq,
			Item:     res.item,
			HasItem:  res.hasItem,
			Duration: elapsed,
			Failure:  res.failure,
		}
		l.metrics.observeItem(elapsed, res.failure)

		if res.failure == nil {
			succeeded++
			slog.Debug("item done", "run_id", l.runID, "seq", seq, "outcome", outcomeOK, "duration", elapsed)
			next, err := l.finally(res.st, out)
			if err != nil {
				l.metrics.observeHookError()
				slog.Error("finally hook failed", "run_id", l.runID, "seq", seq, "error", err)
				next = res.st
			}
			st = next
			continue
		}

		failed++
		slog.Debug("item done", "run_id", l.runID, "seq", seq, "outcome", outcomeFailed, "duration", elapsed, "error", res.failure)
		if l.flush != nil {
			if err := l.flush(); err != nil {
				slog.Error("flush failed", "run_id", l.runID, "seq", seq, "error", err)
			}
		}
		next, err := l.finally(res.st, out)
		if err != nil {
			slog.Info("run stopping: escalated", "run_id", l.runID, "seq", seq, "error", err)
			return next, newEscalation(l.runID, seq, res.failure.Stage, err)
		}
		st = next
	}
}

// stepResult is what one iteration produced.
type stepResult[A any] struct {
	st        state.State
	item      A
	hasItem   bool
	exhausted bool
	failure   *pipeline.Failure

	// panicked carries an unbound-key panic to be re-raised by Run.
	panicked any

	// preempted is set when the governor fired before the worker
	// finished; gate is held by the worker while one of its stages runs.
	preempted bool
	gate      *sync.Mutex
}

// step pulls and evaluates one item on a worker goroutine and waits for it
// or for the governor, whichever comes first. Both channels are buffered so
// an abandoned worker never blocks. An item pulled after the governor fired
// is dropped unevaluated.
//
// On failure the result carries the post-pull state: changes made by the
// stages that ran before the failing one are discarded.
func (l *Loop[A]) step(h *governor.Handle, st state.State, seq int64) stepResult[A] {
	ctx := h.Context()
	gate := &sync.Mutex{}
	pulled := make(chan stepResult[A], 1)
	done := make(chan stepResult[A], 1)

	go func() {
		cur := stepResult[A]{st: st}
		defer func() {
			if r := recover(); r != nil {
				if state.IsUnbound(r) {
					cur.panicked = r
				} else {
					stage := stageProducer
					if cur.hasItem {
						stage = ""
					}
					cur.failure = &pipeline.Failure{Stage: stage, Err: &pipeline.PanicError{Value: r}, Trace: debug.Stack()}
				}
				done <- cur
			}
		}()

		next, item, ok, err := l.pull(ctx, st)
		if ctx.Err() != nil {
			// Preempted during the pull: Run has already moved on.
			return
		}
		if err != nil {
			cur.failure = toFailure(stageProducer, err)
			done <- cur
			return
		}
		if !ok {
			done <- stepResult[A]{st: next, exhausted: true}
			return
		}

		cur = stepResult[A]{st: next, item: item, hasItem: true}
		pulled <- cur

		out, _, err := pipeline.Eval(ctx, l.pipe, next, item, l.evalOptions(next, seq, gate)...)
		if err != nil {
			cur.failure = toFailure("", err)
		} else {
			cur.st = out
		}
		done <- cur
	}()

	select {
	case res := <-done:
		return l.attributeCancel(h, res)
	case <-h.Done():
	}

	// The worker may have finished just as the governor fired.
	select {
	case res := <-done:
		return l.attributeCancel(h, res)
	default:
	}

	res := stepResult[A]{st: st}
	select {
	case p := <-pulled:
		res = p
	default:
	}
	res.failure = &pipeline.Failure{Err: h.Err()}
	res.preempted = true
	res.gate = gate
	slog.Debug("item preempted", "run_id", l.runID, "seq", seq, "cause", h.Err())
	return res
}

// quiesce waits up to the stop grace for a preempted item's running stage to
// return. The item's context is already cancelled, so once the gate is free
// no stage of that item starts again and nothing it writes can interleave
// with the flush and the hook. A stage that outlives the grace is left
// running.
func (l *Loop[A]) quiesce(gate *sync.Mutex, seq int64) {
	free := make(chan struct{})
	go func() {
		gate.Lock()
		gate.Unlock()
		close(free)
	}()

	timer := time.NewTimer(l.grace)
	defer timer.Stop()
	select {
	case <-free:
	case <-timer.C:
		slog.Warn("preempted stage still running, continuing without it", "run_id", l.runID, "seq", seq, "grace", l.grace)
	}
}

// attributeCancel replaces a cancellation error surfaced by a stage that
// honoured ctx with the governor's cause.
func (l *Loop[A]) attributeCancel(h *governor.Handle, res stepResult[A]) stepResult[A] {
	if res.failure == nil {
		return res
	}
	cause := h.Err()
	if cause == nil || errors.Is(res.failure, cause) {
		return res
	}
	if errors.Is(res.failure, context.Canceled) || errors.Is(res.failure, context.DeadlineExceeded) {
		res.failure = &pipeline.Failure{Stage: res.failure.Stage, Err: cause, Trace: res.failure.Trace}
	}
	return res
}

// pull serializes producer calls, so a worker abandoned mid-pull finishes
// before the next iteration pulls.
func (l *Loop[A]) pull(ctx context.Context, st state.State) (state.State, A, bool, error) {
	l.pullMu.Lock()
	defer l.pullMu.Unlock()
	return l.producer(ctx, st)
}

func (l *Loop[A]) evalOptions(st state.State, seq int64, gate sync.Locker) []pipeline.EvalOption {
	opts := make([]pipeline.EvalOption, 0, len(l.evalOpts)+2)
	opts = append(opts, l.evalOpts...)
	opts = append(opts, pipeline.WithStageLock(gate))
	if state.Get(st, Debug) {
		opts = append(opts, pipeline.WithObserver(logObserver{runID: l.runID, seq: seq}))
	}
	return opts
}

func toFailure(stage string, err error) *pipeline.Failure {
	if f, ok := pipeline.AsFailure(err); ok {
		return f
	}
	return &pipeline.Failure{Stage: stage, Err: err, Trace: debug.Stack()}
}

// Run is shorthand for New(producer, pipe, finally, opts...).Run(ctx, st).
func Run[A any](ctx context.Context, finally Finally[A], producer pipeline.Producer[A], st state.State, pipe pipeline.Pipeline[A, pipeline.Unit], opts ...Option) (state.State, error) {
	return New(producer, pipe, finally, opts...).Run(ctx, st)
}
