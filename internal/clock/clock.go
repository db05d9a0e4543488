// Package clock abstracts wall-clock time and deferred callbacks so page
// timers can run against a virtual clock in tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the
	// call stopped the timer.
	Stop() bool
}

// Scheduler issues one-shot callbacks and reports the current time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a Scheduler backed by the runtime timer.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Every calls f every d until the returned stop func is called. The first
// call happens after d, not immediately.
func Every(s Scheduler, d time.Duration, f func()) (stop func()) {
	var (
		mu      sync.Mutex
		current Timer
		stopped bool
	)

	var tick func()
	tick = func() {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		mu.Unlock()

		f()

		mu.Lock()
		defer mu.Unlock()
		if !stopped {
			current = s.AfterFunc(d, tick)
		}
	}

	mu.Lock()
	current = s.AfterFunc(d, tick)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if current != nil {
			current.Stop()
		}
	}
}
