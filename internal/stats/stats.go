// Package stats is pure introspection over a running pool: a set of atomic
// counters fed by the worker loop and the public spawn boundary, read by
// internal/metrics and the status CLI subcommand. Nothing in here ever
// influences scheduling decisions; it only observes them, the same role
// internal/jobmanager's Stats() map plays over job state in the teacher
// repo, generalized from a point-in-time map snapshot to a live registry.
package stats

import "sync/atomic"

// Snapshot is a point-in-time copy of a Registry's counters, safe to log,
// print, or feed to a metrics gauge without any further synchronization.
type Snapshot struct {
	Scheduled  int64
	Dispatched int64
	InFlight   int64
	Pending    int64
}

// Registry accumulates counts of tasks moving through a pool's queue. The
// zero value is ready to use; New returns a pointer to one.
type Registry struct {
	scheduled  atomic.Int64
	dispatched atomic.Int64
	inFlight   atomic.Int64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// RecordScheduled counts a task being handed to the queue, whether or not it
// is ever dispatched (a pool shutdown may abort it first).
func (r *Registry) RecordScheduled() {
	r.scheduled.Add(1)
}

// RecordDispatchStart counts a worker popping a task off the queue and
// beginning to run it.
func (r *Registry) RecordDispatchStart() {
	r.dispatched.Add(1)
	r.inFlight.Add(1)
}

// RecordDispatchEnd counts a worker finishing whatever it popped, whether
// the task completed, panicked, or (for an async task) merely yielded and
// will be redispatched later under its own RecordDispatchStart.
func (r *Registry) RecordDispatchEnd() {
	r.inFlight.Add(-1)
}

// Snapshot captures the registry's current counters alongside the caller's
// own count of tasks still sitting in the queue (the registry itself has no
// visibility into the queue's contents, only into scheduling and dispatch
// events).
func (r *Registry) Snapshot(pending int) Snapshot {
	return Snapshot{
		Scheduled:  r.scheduled.Load(),
		Dispatched: r.dispatched.Load(),
		InFlight:   r.inFlight.Load(),
		Pending:    int64(pending),
	}
}
