package timers

import (
	"sync"
	"time"
)

// VirtualClock is a deterministic Clock for tests. Time only moves when
// Advance is called; due callbacks run synchronously on the advancing
// goroutine, in deadline order, with arm order breaking ties. Callbacks may
// arm further timers (self-rearming pollers fire repeatedly within one
// Advance).
type VirtualClock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*virtualTimer
}

type virtualTimer struct {
	clock   *VirtualClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

// NewVirtual creates a VirtualClock starting at start.
func NewVirtual(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn to run when the clock advances past d from now.
func (c *VirtualClock) AfterFunc(d time.Duration, fn func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &virtualTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: fn}
	c.pending = append(c.pending, t)
	return t
}

// Stop implements Stopper.
func (t *virtualTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d, running every callback that comes
// due along the way. The clock lands exactly on each deadline before the
// callback runs, so callbacks observe a consistent Now.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		next := c.earliestDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}

		c.now = next.at
		next.stopped = true
		c.removeLocked(next)
		c.mu.Unlock()

		next.fn()

		c.mu.Lock()
	}
}

// earliestDue returns the unstopped timer with the smallest (at, seq) not
// after target. Caller holds the lock.
func (c *VirtualClock) earliestDue(target time.Time) *virtualTimer {
	var best *virtualTimer
	for _, t := range c.pending {
		if t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (c *VirtualClock) removeLocked(t *virtualTimer) {
	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// PendingCount returns the number of armed timers, for test assertions.
func (c *VirtualClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
