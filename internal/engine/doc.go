// Package engine implements the run loop that drives a pipeline over a
// stream of items.
//
// Each iteration arms a resource governor from the limits held in state,
// pulls one item from the producer, evaluates the pipeline on it, disarms the
// governor and hands the outcome to a caller-supplied Finally hook. The hook
// sees successes and failures alike: stage errors, recovered panics, and
// time, memory or interrupt trips all arrive as a *pipeline.Failure. The
// loop resumes with whatever state the hook returns and stops only when the
// producer is exhausted, the parent context is cancelled, or the hook
// returns an error for a failed item.
//
// Go cannot unwind a goroutine from the outside. Each item therefore runs
// on a worker goroutine, and when the governor trips the loop stops waiting
// for it and continues with the state observed after the pull. Stages are
// expected to honour ctx so an abandoned worker exits promptly.
//
// The package also owns the built-in state keys every stanza run carries
// and the Warn/Error/Flush diagnostic entry points built on them.
package engine
