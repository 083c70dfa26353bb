// Package governor arms and disarms resource limits around one unit of work.
//
// A Handle owns a context that is cancelled, with a distinguished cause,
// when any armed limit trips:
//
//   - wall clock: a one-shot timer fires after the time limit (ErrTimeExceeded)
//   - heap: a periodic probe samples live heap bytes and compares them with
//     the size limit (ErrSpaceExceeded)
//   - user interrupt: a signal on the interrupt channel (ErrInterrupted)
//
// Go cannot unwind a goroutine from the outside, so the handle only signals.
// The caller decides what preemption means: the engine runs each item on a
// worker goroutine and stops waiting for it as soon as Done is closed.
//
// Teardown disarms everything. It is idempotent and safe on a nil handle, and
// must run on every exit path before the next handle is armed.
package governor

import (
	"context"
	"math"
	"os"
	"runtime/metrics"
	"sync"
	"time"
)

// NoTimeLimit and NoSizeLimit mean "unlimited".
const (
	NoTimeLimit time.Duration = math.MaxInt64
	NoSizeLimit uint64        = math.MaxUint64
)

// DefaultProbeInterval is how often the heap probe samples memory.
const DefaultProbeInterval = 10 * time.Millisecond

// heapMetric estimates live heap: bytes in reachable objects plus not yet
// swept garbage.
const heapMetric = "/memory/classes/heap/objects:bytes"

// Limits is the budget for one unit of work.
type Limits struct {
	Time time.Duration // NoTimeLimit or <= 0 disables
	Size uint64        // NoSizeLimit or 0 disables
}

// Unlimited returns limits with nothing armed.
func Unlimited() Limits {
	return Limits{Time: NoTimeLimit, Size: NoSizeLimit}
}

func (l Limits) timed() bool { return l.Time > 0 && l.Time != NoTimeLimit }
func (l Limits) sized() bool { return l.Size > 0 && l.Size != NoSizeLimit }

// Option configures Setup.
type Option func(*options)

type options struct {
	probeInterval time.Duration
	interrupts    <-chan os.Signal
	heapBytes     func() uint64
}

// WithProbeInterval sets the heap probe period.
func WithProbeInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.probeInterval = d
		}
	}
}

// WithInterrupts turns any value received on ch into ErrInterrupted.
func WithInterrupts(ch <-chan os.Signal) Option {
	return func(o *options) {
		o.interrupts = ch
	}
}

// WithHeapReader replaces the runtime heap sampler. Used by tests.
func WithHeapReader(f func() uint64) Option {
	return func(o *options) {
		if f != nil {
			o.heapBytes = f
		}
	}
}

// Handle is one armed governor.
type Handle struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	timer  *time.Timer
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// Setup arms the limits and returns the handle. The handle's context is
// derived from parent.
func Setup(parent context.Context, limits Limits, opts ...Option) *Handle {
	o := options{probeInterval: DefaultProbeInterval, heapBytes: readHeapBytes}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancelCause(parent)
	h := &Handle{ctx: ctx, cancel: cancel, stop: make(chan struct{})}

	if limits.timed() {
		limit := limits.Time
		h.timer = time.AfterFunc(limit, func() {
			cancel(&LimitError{Kind: KindTime, Time: limit})
		})
	}

	if limits.sized() {
		h.wg.Add(1)
		go h.probe(limits.Size, o.probeInterval, o.heapBytes)
	}

	if o.interrupts != nil {
		h.wg.Add(1)
		go h.watch(o.interrupts)
	}

	return h
}

func (h *Handle) probe(limit uint64, every time.Duration, heapBytes func() uint64) {
	defer h.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			if used := heapBytes(); used > limit {
				h.cancel(&LimitError{Kind: KindSpace, Size: limit, Used: used})
				return
			}
		}
	}
}

func (h *Handle) watch(ch <-chan os.Signal) {
	defer h.wg.Done()
	select {
	case <-h.stop:
	case <-h.ctx.Done():
	case sig, ok := <-ch:
		if ok {
			h.cancel(&LimitError{Kind: KindInterrupt, Signal: sig})
		}
	}
}

// Context returns the governed context. Stages that honour cancellation see
// it cancelled when a limit trips.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Done is closed when a limit trips, the parent is cancelled, or the handle
// is torn down.
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Err returns the cause of cancellation: a *LimitError when a limit tripped,
// the parent's error when it was cancelled, nil while still armed.
func (h *Handle) Err() error {
	if h.ctx.Err() == nil {
		return nil
	}
	return context.Cause(h.ctx)
}

// Tripped reports the limit error, if a limit (rather than the parent or
// Teardown) ended the handle.
func (h *Handle) Tripped() (*LimitError, bool) {
	return AsLimitError(h.Err())
}

// Teardown disarms the timer, stops the probe and interrupt watcher, and
// waits for them to exit. Safe to call more than once and on nil.
func (h *Handle) Teardown() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.timer != nil {
			h.timer.Stop()
		}
		close(h.stop)
		h.wg.Wait()
		h.cancel(errTornDown)
	})
}

func readHeapBytes() uint64 {
	sample := []metrics.Sample{{Name: heapMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return sample[0].Value.Uint64()
}
