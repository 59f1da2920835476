package pool

import "sync"

// This file is the Go counterpart of fast_pool's context.rs: a process-wide
// ambient slot holding "the" pool, so code deep in a call stack can reach a
// Handle without threading one through every function signature.

var (
	currentMu sync.RWMutex
	current   *Handle
)

// SetCurrent installs h as the ambient pool for this process.
func SetCurrent(h Handle) {
	currentMu.Lock()
	current = &h
	currentMu.Unlock()
}

// TryCurrent returns the ambient pool, if one has been set.
func TryCurrent() (Handle, bool) {
	currentMu.RLock()
	defer currentMu.RUnlock()
	if current == nil {
		return Handle{}, false
	}
	return *current, true
}

// Current returns the ambient pool, panicking if none has been set yet.
// This mirrors spec.md's "fatal if unset" contract for the ambient-handle
// collaborator.
func Current() Handle {
	h, ok := TryCurrent()
	if !ok {
		panic("pool: no current pool set; call pool.SetCurrent first")
	}
	return h
}

// ClearCurrent removes the ambient pool, if any.
func ClearCurrent() {
	currentMu.Lock()
	current = nil
	currentMu.Unlock()
}
