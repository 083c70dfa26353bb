package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockNumbersFromOne(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Last())

	got := []int64{c.Next(), c.Next(), c.Next()}
	assert.Equal(t, []int64{1, 2, 3}, got)
	assert.Equal(t, int64(3), c.Last())
}

func TestResumeClockContinuesJournal(t *testing.T) {
	c := ResumeClock(41)
	assert.Equal(t, int64(41), c.Last(), "Last does not advance")
	assert.Equal(t, int64(42), c.Next())
}

func TestClockConcurrentSeqsAreDistinct(t *testing.T) {
	c := NewClock()
	const workers, perWorker = 16, 250

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				seq := c.Next()
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), c.Last())
}

func TestClockSatisfiesSequencer(t *testing.T) {
	var s Sequencer = ResumeClock(7)
	assert.Equal(t, int64(8), s.Next())
}
