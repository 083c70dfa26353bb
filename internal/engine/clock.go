package engine

import "sync/atomic"

// Sequencer hands out item sequence numbers. The loop calls Next once per
// pull, including the pull that finds the producer exhausted.
type Sequencer interface {
	Next() int64
}

// Clock is the default Sequencer. Seqs start at 1, or just past the last seq
// already in a journal, and never repeat.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first seq is 1.
func NewClock() *Clock {
	return &Clock{}
}

// ResumeClock returns a clock whose first seq is last+1.
func ResumeClock(last int64) *Clock {
	c := &Clock{}
	c.last.Store(last)
	return c
}

func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Last reports the most recent seq handed out, or the resume point when
// Next has not been called.
func (c *Clock) Last() int64 {
	return c.last.Load()
}
