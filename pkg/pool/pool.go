// Package pool is the public entry point for fast-pool: a small FIFO
// worker pool that runs one-shot closures, poll-driven asynchronous state
// machines, and periodic fallible closures, all over the same queue.
package pool

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AlvaroMS25/fast-pool/internal/shared"
	"github.com/AlvaroMS25/fast-pool/internal/stats"
	"github.com/AlvaroMS25/fast-pool/internal/task"
	"github.com/AlvaroMS25/fast-pool/internal/timer"
)

// Pool owns the shared FIFO queue, its worker goroutines, and a lazily
// started timer goroutine for periodic tasks.
type Pool struct {
	sh     *shared.Shared
	stats  *stats.Registry
	wg     *sync.WaitGroup
	logger *zap.Logger
	once   sync.Once

	timerMu sync.Mutex
	timer   *timer.Handle

	stackSize int
	name      string
	nameFunc  func(id int) string
}

// Handle is a cheaply cloneable reference to a running Pool: it holds only
// pointers, so copying a Handle is as cheap as copying any other pointer.
type Handle struct {
	p *Pool
}

// Handle returns a Handle to this pool.
func (p *Pool) Handle() Handle {
	return Handle{p: p}
}

// Len reports how many tasks are currently queued, for metrics/tests.
func (h Handle) Len() int {
	return h.p.sh.Len()
}

// Stats returns a point-in-time snapshot of this pool's scheduling counters,
// for the metrics collector and the status CLI subcommand.
func (h Handle) Stats() stats.Snapshot {
	return h.p.stats.Snapshot(h.p.sh.Len())
}

// timerHandle lazily starts the timer goroutine the first time a periodic
// task is scheduled, and clears the slot again once the timer terminates
// itself after its idle backoff expires with nothing left to track. This
// mirrors fast_pool's ambient "current timer" context slot.
func (h Handle) timerHandle() *timer.Handle {
	h.p.timerMu.Lock()
	defer h.p.timerMu.Unlock()

	if h.p.timer == nil {
		h.p.timer = timer.Start(h.p.sh, func() {
			h.p.timerMu.Lock()
			h.p.timer = nil
			h.p.timerMu.Unlock()
		})
	}
	return h.p.timer
}

// Periodic schedules fn to run every period, starting after the first
// period elapses. times <= 0 means unbounded. A run that returns an error
// is logged and the task is rescheduled exactly as if it had succeeded; no
// error is ever retried within the same tick.
func (h Handle) Periodic(fn func() error, period time.Duration, times int) {
	th := h.timerHandle()
	first := time.Now().Add(period)
	pt := task.NewPeriodicTask(fn, first, period, times, th)
	pt.OnError = func(err error) {
		h.p.logger.Warn("periodic task failed", zap.Error(err))
	}
	th.Schedule(pt)
}

// Shutdown stops accepting new work, waits for every worker goroutine to
// return, then drains the queue: every asynchronous task that has not
// completed, queued or parked, is resolved with ErrShutdown; synchronous and
// periodic tasks still queued are simply dropped, and the result channel of
// a dropped synchronous task never receives an outcome.
// Shutdown is idempotent across every Handle cloned from the same Pool.
func (h Handle) Shutdown() {
	h.p.once.Do(func() {
		h.p.sh.Shutdown()
		h.p.wg.Wait()

		// Anything still in the queue (a SyncTask or PeriodicTask nobody
		// will ever resolve, or an AsyncTask that happened to still be
		// queued) is simply dropped; its references die with it.
		h.p.sh.Drain()

		// Async tasks may be parked off the queue entirely, waiting on a
		// waker some external reactor holds, so they are resolved
		// through Shared's independent registry instead.
		h.p.sh.AbortAllAsync(ErrShutdown)

		h.p.timerMu.Lock()
		if h.p.timer != nil {
			h.p.timer.Stop()
		}
		h.p.timerMu.Unlock()
	})
}
