package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlvaroMS25/fast-pool/internal/shared"
	"github.com/AlvaroMS25/fast-pool/internal/task"
)

func TestPeriodicTaskRunsRepeatedly(t *testing.T) {
	sh := shared.New()
	h := Start(sh, nil)
	defer h.Stop()

	var runs atomic.Int32
	pt := task.NewPeriodicTask(func() error {
		runs.Add(1)
		return nil
	}, time.Now(), 15*time.Millisecond, 3, h)

	h.Schedule(pt)

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		a := sh.Wait()
		if a.Kind == shared.ActionRun {
			a.Task.Run()
		}
	}

	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestTimerGoesIdleAndReportsCallback(t *testing.T) {
	// This exercises the backoff-exhaustion path directly rather than
	// waiting out the real schedule (tens of seconds): it verifies the
	// goroutine terminates and calls onIdle when it never receives any
	// periodic task at all, which hits the same codepath with whatever
	// the schedule length happens to be.
	idle := make(chan struct{})
	shortBackoff := backoffSteps
	backoffSteps = []time.Duration{time.Millisecond, time.Millisecond}
	defer func() { backoffSteps = shortBackoff }()

	h := Start(shared.New(), func() { close(idle) })
	defer h.Stop()

	select {
	case <-idle:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never went idle")
	}
}

func TestStopTerminatesImmediately(t *testing.T) {
	sh := shared.New()
	h := Start(sh, nil)
	pt := task.NewPeriodicTask(func() error { return nil }, time.Now().Add(time.Hour), time.Hour, 1, h)
	h.Schedule(pt)
	h.Stop()

	select {
	case <-h.t.done:
	case <-time.After(time.Second):
		t.Fatal("timer goroutine did not stop")
	}
}

func TestRescheduleFeedsBackIntoTimer(t *testing.T) {
	sh := shared.New()
	h := Start(sh, nil)
	defer h.Stop()

	var runs atomic.Int32
	pt := task.NewPeriodicTask(func() error {
		runs.Add(1)
		return nil
	}, time.Now(), 10*time.Millisecond, 0, h)

	h.Schedule(pt)

	deadline := time.Now().Add(time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		a := sh.Wait()
		if a.Kind == shared.ActionRun {
			a.Task.Run()
		}
	}
	require.GreaterOrEqual(t, runs.Load(), int32(2))
}
