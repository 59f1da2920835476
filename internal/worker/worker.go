// Package worker implements the goroutine that repeatedly waits on a
// shared.Shared for work and runs whatever it is handed.
//
// Each Worker is an independent goroutine that continuously executes the
// following loop:
//  1. Wait for a Runnable (blocking)
//  2. Run the before hook, if any
//  3. Run the task
//  4. Run the after hook, if any
//  5. Repeat until the shared queue signals exit
//
// Hook panics are deliberately not recovered here: hooks are infrastructure
// set up once by whoever built the pool, not untrusted task bodies, so a
// broken hook is allowed to take its worker down loudly. Task bodies catch
// their own panics (see internal/task) before they ever reach this loop.
package worker

import (
	"go.uber.org/zap"

	"github.com/AlvaroMS25/fast-pool/internal/shared"
)

// Hooks bundles the optional lifecycle callbacks a worker invokes around
// every task it runs, plus the ones it invokes once at goroutine start/stop.
type Hooks struct {
	OnStart func(id int)
	OnStop  func(id int)
	Before  func(id int)
	After   func(id int)
}

// Worker repeatedly waits on a shared queue and runs whatever it is handed.
type Worker struct {
	id     int
	sh     *shared.Shared
	hooks  Hooks
	logger *zap.Logger
}

// New builds a Worker. logger may be nil, in which case a no-op logger is
// used.
func New(id int, sh *shared.Shared, hooks Hooks, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{id: id, sh: sh, hooks: hooks, logger: logger}
}

// ID returns the worker's index within its pool, for logging and metrics.
func (w *Worker) ID() int {
	return w.id
}

// Run is the worker's main loop. It returns once the shared queue reports
// ActionExit.
func (w *Worker) Run() {
	if w.hooks.OnStart != nil {
		w.hooks.OnStart(w.id)
	}
	defer func() {
		if w.hooks.OnStop != nil {
			w.hooks.OnStop(w.id)
		}
	}()

	for {
		action := w.sh.Wait()
		switch action.Kind {
		case shared.ActionExit:
			w.logger.Debug("worker exiting", zap.Int("worker_id", w.id))
			return
		case shared.ActionRetry:
			continue
		case shared.ActionRun:
			w.runOne(action.Task)
		}
	}
}

func (w *Worker) runOne(t shared.Runnable) {
	if w.hooks.Before != nil {
		w.hooks.Before(w.id)
	}
	t.Run()
	if w.hooks.After != nil {
		w.hooks.After(w.id)
	}
}
