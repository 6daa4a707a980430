// Package locker serializes payment submissions. The shared store offers no
// row-level locking, so the whole applyPayment operation runs under a single
// process-wide lock with a bounded wait.
package locker

import (
	"errors"
	"time"
)

// ErrTimeout is returned when the lock could not be obtained within the wait
var ErrTimeout = errors.New("locker: timed out waiting for payment lock")

// Locker is a mutual-exclusion lock with a bounded acquire wait
type Locker struct {
	ch chan struct{}
}

func New() *Locker {
	return &Locker{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is held or the timeout elapses
func (l *Locker) Acquire(timeout time.Duration) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// Release frees the lock. Must be called exactly once per successful Acquire;
// callers defer it so every exit path releases.
func (l *Locker) Release() {
	select {
	case <-l.ch:
	default:
	}
}
