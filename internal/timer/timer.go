// Package timer implements the dedicated periodic-task clock: a single
// goroutine that holds every PeriodicTask currently waiting for its next
// tick, wakes up just in time to dispatch whichever is due soonest onto the
// pool's shared FIFO queue, and backs off adaptively while idle so a pool
// with no periodic work does not spin a goroutine forever.
package timer

import (
	"sort"
	"time"

	"github.com/AlvaroMS25/fast-pool/internal/shared"
	"github.com/AlvaroMS25/fast-pool/internal/task"
)

// backoffSteps is the adaptive idle-backoff schedule: how long the timer
// goroutine sleeps when it has no periodic tasks to track, growing from
// 100ms up to 2.5s before it gives up and terminates.
var backoffSteps = []time.Duration{
	100 * time.Millisecond, 150 * time.Millisecond, 200 * time.Millisecond,
	250 * time.Millisecond, 300 * time.Millisecond, 350 * time.Millisecond,
	400 * time.Millisecond, 450 * time.Millisecond, 500 * time.Millisecond,
	550 * time.Millisecond, 600 * time.Millisecond, 650 * time.Millisecond,
	700 * time.Millisecond, 750 * time.Millisecond, 800 * time.Millisecond,
	850 * time.Millisecond, 900 * time.Millisecond, 950 * time.Millisecond,
	1000 * time.Millisecond, 1100 * time.Millisecond, 1200 * time.Millisecond,
	1300 * time.Millisecond, 1400 * time.Millisecond, 1500 * time.Millisecond,
	1600 * time.Millisecond, 1700 * time.Millisecond, 1800 * time.Millisecond,
	1900 * time.Millisecond, 2000 * time.Millisecond, 2100 * time.Millisecond,
	2200 * time.Millisecond, 2300 * time.Millisecond, 2400 * time.Millisecond,
	2500 * time.Millisecond,
}

type action struct {
	schedule *task.PeriodicTask
	abort    bool
}

// Timer owns the set of periodic tasks waiting for their next run and the
// goroutine that wakes them up.
type Timer struct {
	sh      *shared.Shared
	actions chan action
	done    chan struct{}
	onIdle  func()
}

// Handle is the pool-facing entry point into a running Timer. It implements
// task.Rescheduler so a PeriodicTask that just ran can hand itself back.
type Handle struct {
	t *Timer
}

// Start launches the timer goroutine. onIdle, if non-nil, is called exactly
// once, from the timer goroutine, the moment it terminates itself after
// exhausting the backoff schedule with nothing left to track; pkg/pool uses
// it to clear its ambient "current timer" slot so the next Periodic call
// lazily spins up a fresh one.
func Start(sh *shared.Shared, onIdle func()) *Handle {
	tm := &Timer{
		sh:      sh,
		actions: make(chan action, 8),
		done:    make(chan struct{}),
		onIdle:  onIdle,
	}
	go tm.run()
	return &Handle{t: tm}
}

// Schedule registers pt to be dispatched once it is next due.
func (h *Handle) Schedule(pt *task.PeriodicTask) {
	select {
	case h.t.actions <- action{schedule: pt}:
	case <-h.t.done:
	}
}

// Reschedule implements task.Rescheduler.
func (h *Handle) Reschedule(pt *task.PeriodicTask) {
	h.Schedule(pt)
}

// Stop terminates the timer goroutine immediately, without waiting for the
// idle backoff to run out. Used by pool shutdown.
func (h *Handle) Stop() {
	select {
	case h.t.actions <- action{abort: true}:
	case <-h.t.done:
	}
}

func (tm *Timer) run() {
	defer close(tm.done)

	var held []*task.PeriodicTask
	backoff := 0

	for {
		var wait time.Duration
		if len(held) > 0 {
			wait = tm.nextWait(held)
			backoff = 0
		} else {
			if backoff >= len(backoffSteps) {
				if tm.onIdle != nil {
					tm.onIdle()
				}
				return
			}
			wait = backoffSteps[backoff]
			backoff++
		}

		timer := time.NewTimer(wait)
		select {
		case a, ok := <-tm.actions:
			timer.Stop()
			if !ok || a.abort {
				return
			}
			held = append(held, a.schedule)
			backoff = 0
		case <-timer.C:
			held = tm.fireDue(held)
		}
	}
}

func (tm *Timer) nextWait(held []*task.PeriodicTask) time.Duration {
	soonest := held[0].Next()
	for _, pt := range held[1:] {
		if pt.Next().Before(soonest) {
			soonest = pt.Next()
		}
	}
	d := time.Until(soonest)
	if d < 0 {
		return 0
	}
	return d
}

func (tm *Timer) fireDue(held []*task.PeriodicTask) []*task.PeriodicTask {
	now := time.Now()
	sort.Slice(held, func(i, j int) bool { return held[i].Next().Before(held[j].Next()) })

	var remaining []*task.PeriodicTask
	for _, pt := range held {
		if pt.Due(now) {
			_ = tm.sh.Schedule(pt)
			continue
		}
		remaining = append(remaining, pt)
	}
	return remaining
}
