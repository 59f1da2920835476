package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotStartsAtZero(t *testing.T) {
	r := New()
	s := r.Snapshot(0)
	assert.Equal(t, Snapshot{}, s)
}

func TestScheduledAndDispatchCounters(t *testing.T) {
	r := New()
	r.RecordScheduled()
	r.RecordScheduled()
	r.RecordDispatchStart()

	s := r.Snapshot(1)
	assert.EqualValues(t, 2, s.Scheduled)
	assert.EqualValues(t, 1, s.Dispatched)
	assert.EqualValues(t, 1, s.InFlight)
	assert.EqualValues(t, 1, s.Pending)

	r.RecordDispatchEnd()
	s = r.Snapshot(0)
	assert.EqualValues(t, 0, s.InFlight)
}

func TestConcurrentRecording(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RecordScheduled()
			r.RecordDispatchStart()
			r.RecordDispatchEnd()
		}()
	}
	wg.Wait()

	s := r.Snapshot(0)
	assert.EqualValues(t, 200, s.Scheduled)
	assert.EqualValues(t, 200, s.Dispatched)
	assert.EqualValues(t, 0, s.InFlight)
}
