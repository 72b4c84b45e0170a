// Package timers provides the coordination loop's time source and its
// purpose-keyed one-shot timer scheduler.
//
// Every delay in axwatch (reshow settle, scroll restore, content settle,
// analyze debounce) is a named, cancellable, re-armable timer delivered as
// a Firing on a single channel consumed by the monitor loop. Nothing in the
// coordinator sleeps or blocks on time; "later" always means "a Firing will
// arrive". Tests inject a virtual clock and advance it deterministically.
package timers

import "time"

// Clock is the time source behind a Scheduler. The real clock wraps the
// time package; tests use VirtualClock.
type Clock interface {
	Now() time.Time
	// AfterFunc runs fn after d elapses, on an unspecified goroutine for
	// the real clock and synchronously inside Advance for the virtual one.
	AfterFunc(d time.Duration, fn func()) Stopper
}

// Stopper cancels a pending AfterFunc. Stop reports whether it prevented
// the callback from running.
type Stopper interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Stopper {
	return time.AfterFunc(d, fn)
}

// Real returns the wall clock.
func Real() Clock { return realClock{} }
