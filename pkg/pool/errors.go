package pool

import (
	"errors"

	"github.com/AlvaroMS25/fast-pool/internal/task"
)

// ErrNameConflict is returned by Builder.Build when both WithName and
// WithNameFunc were used on the same builder.
var ErrNameConflict = errors.New("pool: both WithName and WithNameFunc set on builder")

// ErrShutdown is the outcome delivered to every asynchronous task that has
// not completed when its pool is shut down. Synchronous tasks still queued at
// shutdown are dropped without an outcome.
var ErrShutdown = errors.New("pool: shut down before task completed")

func init() {
	task.SetShutdownError(ErrShutdown)
}
