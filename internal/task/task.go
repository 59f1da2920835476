// Package task implements the three kinds of work a pool can run: a one-shot
// synchronous closure, a poll-driven asynchronous state machine, and a
// periodic fallible closure. It also implements the asynchronous waker
// bridge (Waker[T]) that lets an AsyncTask reschedule itself onto the same
// queue every other task runs on.
//
// All three task kinds implement shared.Runnable, so a single FIFO queue
// (internal/shared) can hold a heterogeneous mix of them.
package task

import (
	"sync/atomic"
	"time"

	"github.com/AlvaroMS25/fast-pool/internal/resultchan"
	"github.com/AlvaroMS25/fast-pool/internal/shared"
)

// Status is the result of polling a Future: either it produced a value
// (Ready) or it needs to be polled again later (Pending).
type Status int

const (
	Pending Status = iota
	Ready
)

// Future is a poll-driven asynchronous state machine. Poll is called at
// most once per wake. If it returns Pending, the implementation must have
// arranged for w.Clone() (or w.Wake()/w.WakeByRef()) to eventually be called
// by whatever external reactor it registered with, or the task is
// abandoned forever.
type Future[T any] interface {
	Poll(w *Waker[T]) (T, Status)
}

// FutureFunc adapts a plain function into a Future that is always Ready on
// its first poll, useful for tests and for trivial async tasks.
type FutureFunc[T any] func() T

func (f FutureFunc[T]) Poll(*Waker[T]) (T, Status) {
	return f(), Ready
}

// PanicError wraps the payload recovered from a task panic. The channel
// that carries it never inspects Value; it is surfaced to callers verbatim.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return "task: panicked"
}

// Abortable is implemented by task kinds that hold a live producer which
// must be resolved even if the task never actually runs, notably when a
// pool shuts down with tasks still queued.
type Abortable interface {
	AbortAndFree(err error)
}

// Observer receives per-task outcome notifications, for internal/metrics to
// turn into Prometheus series. It is deliberately the only way metrics
// reaches into this package: SetObserver mirrors SetShutdownError's
// pattern of letting pkg/pool wire a concrete implementation in without
// internal/task importing anything above it.
type Observer interface {
	RecordDispatched()
	RecordCompleted(latencySeconds float64)
	RecordPanicked()
	RecordPeriodicRun(failed bool)
}

type noopObserver struct{}

func (noopObserver) RecordDispatched()             {}
func (noopObserver) RecordCompleted(float64)       {}
func (noopObserver) RecordPanicked()               {}
func (noopObserver) RecordPeriodicRun(failed bool) {}

var observer Observer = noopObserver{}

// SetObserver installs o as the package-wide task Observer. Passing nil
// restores the no-op default.
func SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	observer = o
}

// Rescheduler is satisfied by internal/timer.Handle. PeriodicTask depends on
// this interface, not on the timer package directly, to avoid an import
// cycle (the timer package needs to import task to hold a *PeriodicTask).
type Rescheduler interface {
	Reschedule(*PeriodicTask)
}

// ---- SyncTask ----------------------------------------------------------

// SyncTask is a single boxed closure executed exactly once inside a panic
// boundary.
type SyncTask struct {
	fn          func() any
	producer    *resultchan.Producer
	scheduledAt time.Time
}

// NewSyncTask builds a SyncTask. producer may be nil for a detached task,
// in which case its outcome (value or panic) is simply discarded.
func NewSyncTask(fn func() any, producer *resultchan.Producer) *SyncTask {
	return &SyncTask{fn: fn, producer: producer, scheduledAt: time.Now()}
}

// Run executes the closure, recovering any panic, and delivers exactly one
// Outcome if a producer is attached.
func (t *SyncTask) Run() {
	observer.RecordDispatched()

	var (
		value    any
		panicked any
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = r
			}
		}()
		value = t.fn()
	}()

	if panicked != nil {
		observer.RecordPanicked()
	} else {
		observer.RecordCompleted(time.Since(t.scheduledAt).Seconds())
	}

	if t.producer == nil {
		return
	}
	if panicked != nil {
		t.producer.Set(resultchan.Outcome{Panic: panicked})
		return
	}
	t.producer.Set(resultchan.Outcome{Value: value})
}

// AbortAndFree resolves the task's channel with err without ever running
// the closure. pkg/pool's Shutdown does not call it: a SyncTask still queued
// at shutdown is dropped and its channel never receives an outcome.
func (t *SyncTask) AbortAndFree(err error) {
	if t.producer == nil {
		return
	}
	t.producer.Set(resultchan.Outcome{Panic: err})
}

// ---- AsyncTask ----------------------------------------------------------

// asyncState tracks not just completion but whether the task is currently
// being polled, so that a wake arriving while a worker is mid-poll never
// causes a second worker to start a concurrent Poll call: it just marks
// that another round is needed, and the worker already running Poll loops
// on its own instead of re-entering the queue.
type asyncState int32

const (
	asyncIdle asyncState = iota
	asyncPolling
	asyncRepoll
	asyncCompleted
)

// AsyncTask is the header for a poll-driven task: its future, its
// reference count, its poll/completion state, and the queue it reschedules
// itself onto when woken.
type AsyncTask[T any] struct {
	refcount atomic.Int32
	state    atomic.Int32 // asyncState

	future      Future[T]
	producer    *resultchan.Producer
	sh          *shared.Shared
	scheduledAt time.Time
}

// NewAsyncTask builds an AsyncTask already marked as scheduled to run
// (asyncPolling), with an initial reference count of one representing the
// reference the caller is about to hand to sh.Schedule. The task is also
// registered with sh so a pool shutdown can resolve it even if it ends up
// parked off the queue, waiting on a waker some external reactor holds.
func NewAsyncTask[T any](sh *shared.Shared, fut Future[T], producer *resultchan.Producer) *AsyncTask[T] {
	t := &AsyncTask[T]{future: fut, sh: sh, producer: producer, scheduledAt: time.Now()}
	t.refcount.Store(1)
	t.state.Store(int32(asyncPolling))
	sh.TrackAsync(t)
	return t
}

// Run drives the task's future through as many Poll calls as are needed to
// either complete it or genuinely hand it off to an external waker. It is
// called by a worker after popping the task off the queue, owns exactly
// one reference count at entry (the one the queue slot held), and never
// lets a second goroutine enter Poll concurrently with it: a wake that
// arrives while this loop is polling just sets asyncRepoll, consumed on
// the loop's next iteration instead of triggering a second dequeue.
func (t *AsyncTask[T]) Run() {
	observer.RecordDispatched()
	for {
		if asyncState(t.state.Load()) == asyncCompleted {
			t.releaseRef()
			return
		}

		w := &Waker[T]{task: t}
		var (
			value    T
			status   Status
			panicked any
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					panicked = r
				}
			}()
			value, status = t.future.Poll(w)
		}()

		if panicked != nil {
			observer.RecordPanicked()
			t.complete(resultchan.Outcome{Panic: panicked})
			t.releaseRef()
			return
		}
		if status == Ready {
			observer.RecordCompleted(time.Since(t.scheduledAt).Seconds())
			t.complete(resultchan.Outcome{Value: value})
			t.releaseRef()
			return
		}

		// Pending. If the task was aborted while we were polling, stop.
		if asyncState(t.state.Load()) == asyncCompleted {
			t.releaseRef()
			return
		}
		// If nobody tried to wake us while we were polling, go idle and
		// release our reference: whatever clone of the waker the future
		// stashed away keeps the task alive.
		if t.state.CompareAndSwap(int32(asyncPolling), int32(asyncIdle)) {
			t.releaseRef()
			return
		}
		// Otherwise a wake arrived mid-poll and left asyncRepoll behind:
		// consume it and poll again ourselves, reusing our reference
		// rather than re-entering the queue.
		t.state.Store(int32(asyncPolling))
	}
}

// complete transitions the task to completed exactly once and, if it won
// the transition, delivers the outcome, drops the future so it can be
// collected, and removes the task from Shared's asyncTasks registry so the
// header does not stay reachable (and unreclaimable) for the rest of the
// pool's lifetime.
func (t *AsyncTask[T]) complete(o resultchan.Outcome) {
	for {
		s := asyncState(t.state.Load())
		if s == asyncCompleted {
			return
		}
		if t.state.CompareAndSwap(int32(s), int32(asyncCompleted)) {
			break
		}
	}
	t.future = nil
	if t.producer != nil {
		t.producer.Set(o)
		t.producer = nil
	}
	t.sh.UntrackAsync(t)
}

// AbortAndFree forcibly completes the task with err as its outcome, used
// when the exit flag is observed during a wake, or when a pool shuts down.
// It is idempotent: only the caller that actually wins the completion
// transition delivers anything.
func (t *AsyncTask[T]) AbortAndFree(err error) {
	t.complete(resultchan.Outcome{Panic: err})
}

// releaseRef decrements the reference count. Once it reaches zero and the
// task is completed, nothing in the program still references the header
// and it becomes eligible for garbage collection; Go substitutes the
// tracing collector for fast_pool's manual dealloc here.
func (t *AsyncTask[T]) releaseRef() {
	t.refcount.Add(-1)
}

// RefCount reports the current reference count, for tests.
func (t *AsyncTask[T]) RefCount() int32 {
	return t.refcount.Load()
}

// Completed reports whether the task has delivered its outcome.
func (t *AsyncTask[T]) Completed() bool {
	return asyncState(t.state.Load()) == asyncCompleted
}

// ---- Waker ---------------------------------------------------------------

// Waker lets a Future reschedule the AsyncTask that owns it once more work
// can be made. Each instantiation Waker[T] is the Go-generics equivalent of
// fast_pool's per-future vtable: the clone/wake/release behavior is fixed
// at compile time for T, no runtime dispatch table is needed.
type Waker[T any] struct {
	task *AsyncTask[T]
}

// Clone increments the task's reference count and returns an independent
// handle to the same task. Call this before storing a waker anywhere that
// outlives the current Poll call.
func (w *Waker[T]) Clone() *Waker[T] {
	w.task.refcount.Add(1)
	return &Waker[T]{task: w.task}
}

// Wake reschedules the task (or aborts it, if the pool is exiting),
// consuming this waker's reference.
func (w *Waker[T]) Wake() {
	w.wake()
}

// WakeByRef has the same effect as Wake but does not consume the waker; the
// caller must still Release it (or call Wake exactly once) eventually.
func (w *Waker[T]) WakeByRef() {
	w.wake()
	w.task.refcount.Add(1)
}

// wake implements the core of Wake/WakeByRef: if the task is currently
// being polled by some worker, it just leaves a note (asyncRepoll) for that
// worker's own loop to pick up, rather than letting a second worker start
// a concurrent Poll call on the same future.
func (w *Waker[T]) wake() {
	t := w.task
	if t.sh.Exiting() {
		t.AbortAndFree(errShutdownPlaceholder)
		return
	}

	for {
		s := asyncState(t.state.Load())
		switch s {
		case asyncCompleted:
			t.releaseRef()
			return
		case asyncPolling:
			if t.state.CompareAndSwap(int32(asyncPolling), int32(asyncRepoll)) {
				t.releaseRef()
				return
			}
		case asyncRepoll:
			// Some other waker clone already left a repoll note for the
			// owning Run() loop; this wake has nothing new to add. The
			// owning loop is the only thing allowed to transition out of
			// asyncRepoll, so just drop our reference and return.
			t.releaseRef()
			return
		case asyncIdle:
			if t.state.CompareAndSwap(int32(asyncIdle), int32(asyncPolling)) {
				_ = t.sh.Schedule(t)
				return
			}
		}
	}
}

// Release drops this waker's reference without waking the task. Once the
// reference count reaches zero on an incomplete task, the task is simply
// abandoned (a programmer error in the Future implementation, not a bug in
// the pool).
func (w *Waker[T]) Release() {
	w.task.releaseRef()
}

// errShutdownPlaceholder is replaced at wiring time by pkg/pool.ErrShutdown
// via SetShutdownError; kept here so internal/task has no import on
// pkg/pool (which imports internal/task), avoiding a cycle.
var errShutdownPlaceholder error = shutdownSentinel{}

type shutdownSentinel struct{}

func (shutdownSentinel) Error() string { return "task: pool shut down before task completed" }

// SetShutdownError lets pkg/pool install its own public ErrShutdown value
// so that errors.Is(err, pool.ErrShutdown) works for callers, while keeping
// this package free of a dependency on pkg/pool.
func SetShutdownError(err error) {
	errShutdownPlaceholder = err
}

// ---- PeriodicTask ---------------------------------------------------------

// PeriodicTask is a fallible closure run on a fixed period, optionally a
// bounded number of times. Each run is independent: a failing run is
// logged by the caller (via OnError) and the task is rescheduled exactly as
// if it had succeeded.
type PeriodicTask struct {
	fn     func() error
	period time.Duration
	next   time.Time

	remaining *int64 // nil means unbounded

	resched Rescheduler

	// OnError, if set, is invoked with the error returned by fn (or the
	// recovered panic value, wrapped in a PanicError) after every run
	// that did not succeed.
	OnError func(error)
}

// NewPeriodicTask builds a periodic task due to first run at `first` and
// thereafter every `period`. times <= 0 means unbounded.
func NewPeriodicTask(fn func() error, first time.Time, period time.Duration, times int, resched Rescheduler) *PeriodicTask {
	pt := &PeriodicTask{fn: fn, period: period, next: first, resched: resched}
	if times > 0 {
		r := int64(times)
		pt.remaining = &r
	}
	return pt
}

// Due reports whether the task's next scheduled run is at or before now.
func (pt *PeriodicTask) Due(now time.Time) bool {
	return !now.Before(pt.next)
}

// Next reports the time this task is next due to run.
func (pt *PeriodicTask) Next() time.Time {
	return pt.next
}

// Run executes the closure inside a panic boundary, reports any failure via
// OnError, and reschedules itself with the Rescheduler captured at
// construction unless its run budget is exhausted.
func (pt *PeriodicTask) Run() {
	err := pt.runOnce()
	observer.RecordPeriodicRun(err != nil)
	if err != nil && pt.OnError != nil {
		pt.OnError(err)
	}

	if pt.remaining != nil {
		*pt.remaining--
		if *pt.remaining <= 0 {
			return
		}
	}

	pt.next = time.Now().Add(pt.period)
	if pt.resched != nil {
		pt.resched.Reschedule(pt)
	}
}

func (pt *PeriodicTask) runOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return pt.fn()
}
