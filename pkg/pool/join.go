package pool

import (
	"sync"

	"github.com/AlvaroMS25/fast-pool/internal/resultchan"
	"github.com/AlvaroMS25/fast-pool/internal/task"
)

// Result is what a JoinHandle's Channel delivers: the produced value, or
// the error recovered from a panic (or ErrShutdown, if the pool was torn
// down first).
type Result[T any] struct {
	Value T
	Err   error
}

// JoinHandle is the consumer side of a task's result channel, typed back
// to T at the one point the library needs to recover the type it erased
// when the task was spawned.
type JoinHandle[T any] struct {
	c resultchan.Consumer

	once sync.Once
	ch   chan Result[T]
}

// Wait blocks until the task completes and returns its value, or the error
// recovered from its panic (or ErrShutdown).
func (j *JoinHandle[T]) Wait() (T, error) {
	return decodeOutcome[T](j.c.Wait())
}

// TryWait returns immediately: ready is false if the task has not yet
// completed.
func (j *JoinHandle[T]) TryWait() (value T, err error, ready bool) {
	o, ok := j.c.TryGet()
	if !ok {
		return value, nil, false
	}
	value, err = decodeOutcome[T](o)
	return value, err, true
}

// Channel returns a channel that receives exactly one Result once the task
// completes, for callers who want to select on it alongside a timeout or a
// context's Done channel rather than blocking in Wait.
func (j *JoinHandle[T]) Channel() <-chan Result[T] {
	j.once.Do(func() {
		j.ch = make(chan Result[T], 1)
		go func() {
			v, err := j.Wait()
			j.ch <- Result[T]{Value: v, Err: err}
		}()
	})
	return j.ch
}

func decodeOutcome[T any](o resultchan.Outcome) (T, error) {
	var zero T
	if o.Panic != nil {
		if err, ok := o.Panic.(error); ok {
			return zero, err
		}
		return zero, &task.PanicError{Value: o.Panic}
	}
	if o.Value == nil {
		return zero, nil
	}
	v, _ := o.Value.(T)
	return v, nil
}
