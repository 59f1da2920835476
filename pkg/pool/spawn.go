package pool

import (
	"fmt"

	"github.com/AlvaroMS25/fast-pool/internal/resultchan"
	"github.com/AlvaroMS25/fast-pool/internal/task"
)

// Spawn submits a one-shot closure and returns a handle its caller can
// Wait() on. Go disallows generic methods on a non-generic receiver, so
// this and every other type-parameterized operation is a free function
// taking a Handle, rather than a method on Handle.
func Spawn[T any](h Handle, fn func() T) *JoinHandle[T] {
	p, c := resultchan.NewPair()
	st := task.NewSyncTask(func() any { return fn() }, &p)
	schedule(h, st)
	return &JoinHandle[T]{c: c}
}

// SpawnDetached submits a one-shot closure whose outcome nobody will ever
// observe.
func SpawnDetached(h Handle, fn func()) {
	st := task.NewSyncTask(func() any { fn(); return nil }, nil)
	schedule(h, st)
}

// SpawnAsync submits a poll-driven Future and returns a handle its caller
// can Wait() on.
func SpawnAsync[T any](h Handle, fut task.Future[T]) *JoinHandle[T] {
	p, c := resultchan.NewPair()
	at := task.NewAsyncTask[T](h.p.sh, fut, &p)
	schedule(h, at)
	return &JoinHandle[T]{c: c}
}

// SpawnAsyncDetached submits a poll-driven Future whose outcome nobody
// will ever observe.
func SpawnAsyncDetached[T any](h Handle, fut task.Future[T]) {
	at := task.NewAsyncTask[T](h.p.sh, fut, nil)
	schedule(h, at)
}

// schedule enqueues r, turning a submit-after-shutdown rejection into a
// panic at this public boundary: spec.md's "fatal for the submitter",
// grounded on fast_pool's Shared::schedule, which panics outright.
// internal/shared itself stays idiomatic Go and merely returns an error.
func schedule(h Handle, r interface{ Run() }) {
	if err := h.p.sh.Schedule(r); err != nil {
		panic(fmt.Sprintf("pool: spawn after shutdown: %v", err))
	}
	h.p.stats.RecordScheduled()
}
