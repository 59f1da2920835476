package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlvaroMS25/fast-pool/internal/resultchan"
	"github.com/AlvaroMS25/fast-pool/internal/shared"
)

func TestSyncTaskDeliversValue(t *testing.T) {
	p, c := resultchan.NewPair()
	st := NewSyncTask(func() any { return 7 }, &p)
	st.Run()

	o, ok := c.TryGet()
	require.True(t, ok)
	assert.Equal(t, 7, o.Value)
	assert.Nil(t, o.Panic)
}

func TestSyncTaskRecoversPanic(t *testing.T) {
	p, c := resultchan.NewPair()
	st := NewSyncTask(func() any { panic("boom") }, &p)
	st.Run()

	o, ok := c.TryGet()
	require.True(t, ok)
	assert.Equal(t, "boom", o.Panic)
}

func TestSyncTaskDetachedDoesNotPanicWithoutProducer(t *testing.T) {
	st := NewSyncTask(func() any { return nil }, nil)
	assert.NotPanics(t, func() { st.Run() })
}

// countingFuture is Pending for its first `remaining` polls and Ready on the
// next one,
// cloning the waker it is handed each time it returns Pending so the
// caller can drive wakeups manually.
type countingFuture struct {
	remaining int
	value     int
	lastWaker *Waker[int]
}

func (f *countingFuture) Poll(w *Waker[int]) (int, Status) {
	if f.remaining <= 0 {
		return f.value, Ready
	}
	f.remaining--
	f.lastWaker = w.Clone()
	return 0, Pending
}

func TestAsyncTaskYieldsThenCompletes(t *testing.T) {
	sh := shared.New()
	p, c := resultchan.NewPair()
	fut := &countingFuture{remaining: 2, value: 99}
	at := NewAsyncTask[int](sh, fut, &p)

	require.NoError(t, sh.Schedule(at))

	// First run: Pending, clones a waker, releases the queue ref.
	a := sh.Wait()
	require.Equal(t, shared.ActionRun, a.Kind)
	a.Task.Run()
	assert.False(t, at.Completed())
	require.NotNil(t, fut.lastWaker)

	// Nothing queued until we wake it ourselves.
	assert.Equal(t, 0, sh.Len())
	fut.lastWaker.Wake()
	assert.Equal(t, 1, sh.Len())

	a = sh.Wait()
	require.Equal(t, shared.ActionRun, a.Kind)
	a.Task.Run()
	assert.False(t, at.Completed())

	fut.lastWaker.Wake()
	a = sh.Wait()
	require.Equal(t, shared.ActionRun, a.Kind)
	a.Task.Run()

	assert.True(t, at.Completed())
	o, ok := c.TryGet()
	require.True(t, ok)
	assert.Equal(t, 99, o.Value)
}

func TestAsyncTaskPanicDeliversPanicOutcome(t *testing.T) {
	sh := shared.New()
	p, c := resultchan.NewPair()
	at := NewAsyncTask[int](sh, FutureFunc[int](func() int { panic("async boom") }), &p)

	require.NoError(t, sh.Schedule(at))
	a := sh.Wait()
	a.Task.Run()

	o, ok := c.TryGet()
	require.True(t, ok)
	assert.Equal(t, "async boom", o.Panic)
	assert.True(t, at.Completed())
}

func TestAsyncTaskAbortAndFreeIsIdempotent(t *testing.T) {
	sh := shared.New()
	p, c := resultchan.NewPair()
	at := NewAsyncTask[int](sh, &countingFuture{remaining: 5}, &p)

	sentinel := errors.New("shut down")
	at.AbortAndFree(sentinel)
	at.AbortAndFree(errors.New("second call must be a no-op"))

	o, ok := c.TryGet()
	require.True(t, ok)
	assert.Equal(t, sentinel, o.Panic)
}

func TestPeriodicTaskReschedulesOnSuccessAndFailure(t *testing.T) {
	type reschedule struct{ task *PeriodicTask }
	var scheduled []*PeriodicTask
	resched := reschedulerFunc(func(pt *PeriodicTask) {
		scheduled = append(scheduled, pt)
	})

	calls := 0
	pt := NewPeriodicTask(func() error {
		calls++
		if calls == 2 {
			return errors.New("transient failure")
		}
		return nil
	}, time.Now(), time.Millisecond, 3, resched)

	var gotErrs []error
	pt.OnError = func(err error) { gotErrs = append(gotErrs, err) }

	pt.Run()
	pt.Run()
	pt.Run() // third and final run, remaining hits zero, no reschedule

	assert.Equal(t, 3, calls)
	assert.Len(t, gotErrs, 1)
	assert.Len(t, scheduled, 2)
}

func TestPeriodicTaskUnboundedAlwaysReschedules(t *testing.T) {
	reschedules := 0
	resched := reschedulerFunc(func(*PeriodicTask) { reschedules++ })
	pt := NewPeriodicTask(func() error { return nil }, time.Now(), time.Millisecond, 0, resched)
	for i := 0; i < 10; i++ {
		pt.Run()
	}
	assert.Nil(t, pt.remaining)
	assert.Equal(t, 10, reschedules)
}

type reschedulerFunc func(*PeriodicTask)

func (f reschedulerFunc) Reschedule(pt *PeriodicTask) { f(pt) }
