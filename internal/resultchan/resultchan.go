// Package resultchan implements the single-producer, single-consumer result
// channel used to hand a task's outcome from whichever worker ran it back to
// whoever is waiting on its handle.
//
// The channel is written at most once (by the task that owns it) and read at
// most once (by the handle that owns the other end). Its payload type is
// erased to any: the channel itself never inspects or depends on what the
// producer delivers, it only moves it.
package resultchan

import "sync"

// Outcome is what a task delivers to its channel: either the produced value
// or the payload recovered from a panic, never both.
type Outcome struct {
	Value any
	Panic any
}

// notifier is told once, by the producer, that an Outcome is available.
type notifier interface {
	notify()
}

type closeNotifier struct {
	done chan struct{}
}

func (c closeNotifier) notify() {
	close(c.done)
}

// wakerNotifier adapts an async waker into a channel notifier so that an
// AsyncTask composed on top of another task's channel can be polled instead
// of blocked on.
type wakerNotifier struct {
	wake func()
}

func (w wakerNotifier) notify() {
	w.wake()
}

type inner struct {
	mu       sync.Mutex
	data     *Outcome
	notifier notifier
}

// Producer is the write half of a result channel. Set must be called at
// most once.
type Producer struct {
	inner *inner
}

// Consumer is the read half of a result channel.
type Consumer struct {
	inner *inner
}

// NewPair allocates a fresh, empty result channel and returns its two ends.
func NewPair() (Producer, Consumer) {
	in := &inner{}
	return Producer{inner: in}, Consumer{inner: in}
}

// Set delivers the outcome and wakes whatever is currently registered to be
// notified, if anything has registered yet. Calling Set more than once on
// the same channel is a programmer error and panics.
func (p Producer) Set(o Outcome) {
	in := p.inner
	in.mu.Lock()
	if in.data != nil {
		in.mu.Unlock()
		panic("resultchan: Set called twice on the same channel")
	}
	in.data = &o
	n := in.notifier
	in.notifier = nil
	in.mu.Unlock()

	if n != nil {
		n.notify()
	}
}

// TryGet returns the outcome without blocking, if it has already been
// delivered.
func (c Consumer) TryGet() (Outcome, bool) {
	in := c.inner
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.data == nil {
		return Outcome{}, false
	}
	o := *in.data
	return o, true
}

// Wait blocks the calling goroutine until the outcome is delivered.
func (c Consumer) Wait() Outcome {
	if o, ok := c.TryGet(); ok {
		return o
	}

	in := c.inner
	done := make(chan struct{})

	in.mu.Lock()
	if in.data != nil {
		o := *in.data
		in.mu.Unlock()
		return o
	}
	in.notifier = closeNotifier{done: done}
	in.mu.Unlock()

	<-done

	in.mu.Lock()
	o := *in.data
	in.mu.Unlock()
	return o
}

// Poll implements the non-blocking half of the protocol used by async
// composition: if the outcome is already there it is returned immediately
// (ready=true); otherwise wake is registered to be called exactly once, the
// next time Set runs, and Poll returns (zero value, false).
func (c Consumer) Poll(wake func()) (Outcome, bool) {
	if o, ok := c.TryGet(); ok {
		return o, true
	}

	in := c.inner
	in.mu.Lock()
	if in.data != nil {
		o := *in.data
		in.mu.Unlock()
		return o, true
	}
	in.notifier = wakerNotifier{wake: wake}
	in.mu.Unlock()
	return Outcome{}, false
}
