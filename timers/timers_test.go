package timers

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func drain(s *Scheduler) []Firing {
	var out []Firing
	for {
		select {
		case f := <-s.C():
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestVirtualClockAdvanceFiresInOrder(t *testing.T) {
	c := NewVirtual(t0)
	var order []string

	c.AfterFunc(30*time.Millisecond, func() { order = append(order, "b") })
	c.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(50*time.Millisecond, func() { order = append(order, "c") })

	c.Advance(40 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order after 40ms: got %v, want [a b]", order)
	}

	c.Advance(10 * time.Millisecond)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("order after 50ms: got %v, want [a b c]", order)
	}
	if got := c.Now(); !got.Equal(t0.Add(50 * time.Millisecond)) {
		t.Errorf("Now: got %v, want %v", got, t0.Add(50*time.Millisecond))
	}
}

func TestVirtualClockSelfRearming(t *testing.T) {
	c := NewVirtual(t0)
	fired := 0

	var tick func()
	tick = func() {
		fired++
		if fired < 5 {
			c.AfterFunc(10*time.Millisecond, tick)
		}
	}
	c.AfterFunc(10*time.Millisecond, tick)

	c.Advance(100 * time.Millisecond)
	if fired != 5 {
		t.Errorf("fired: got %d, want 5", fired)
	}
}

func TestVirtualClockStop(t *testing.T) {
	c := NewVirtual(t0)
	fired := false

	st := c.AfterFunc(10*time.Millisecond, func() { fired = true })
	if !st.Stop() {
		t.Error("Stop: got false, want true")
	}
	c.Advance(time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if st.Stop() {
		t.Error("second Stop: got true, want false")
	}
}

func TestSchedulerArmAndFire(t *testing.T) {
	c := NewVirtual(t0)
	s := NewScheduler(c, nil)

	s.Arm(PurposeReshow, 150*time.Millisecond)
	if !s.Armed(PurposeReshow) {
		t.Fatal("Armed: got false after Arm")
	}

	c.Advance(100 * time.Millisecond)
	if got := drain(s); len(got) != 0 {
		t.Fatalf("early firings: got %v", got)
	}

	c.Advance(50 * time.Millisecond)
	got := drain(s)
	if len(got) != 1 || got[0].Purpose != PurposeReshow {
		t.Fatalf("firings: got %v, want one reshow", got)
	}
	if !got[0].At.Equal(t0.Add(150 * time.Millisecond)) {
		t.Errorf("firing At: got %v", got[0].At)
	}
	if s.Armed(PurposeReshow) {
		t.Error("Armed after fire: got true")
	}
}

func TestSchedulerRearmResetsDeadline(t *testing.T) {
	c := NewVirtual(t0)
	s := NewScheduler(c, nil)

	s.Arm(PurposeScrollRestore, 300*time.Millisecond)
	c.Advance(200 * time.Millisecond)
	s.Arm(PurposeScrollRestore, 300*time.Millisecond) // debounce re-arm

	c.Advance(200 * time.Millisecond)
	if got := drain(s); len(got) != 0 {
		t.Fatalf("fired before re-armed deadline: %v", got)
	}

	c.Advance(100 * time.Millisecond)
	if got := drain(s); len(got) != 1 {
		t.Fatalf("firings: got %v, want one", got)
	}
}

func TestSchedulerCancel(t *testing.T) {
	c := NewVirtual(t0)
	s := NewScheduler(c, nil)

	s.Arm(PurposeReshow, 100*time.Millisecond)
	s.Arm(PurposeScrollRestore, 100*time.Millisecond)
	s.Cancel(PurposeReshow)

	c.Advance(time.Second)
	got := drain(s)
	if len(got) != 1 || got[0].Purpose != PurposeScrollRestore {
		t.Fatalf("firings after cancel: got %v, want only scroll-restore", got)
	}
}

func TestSchedulerCancelAll(t *testing.T) {
	c := NewVirtual(t0)
	s := NewScheduler(c, nil)

	s.Arm(PurposeReshow, 100*time.Millisecond)
	s.Arm(PurposeDriftCheck, 100*time.Millisecond)
	s.Arm(PurposeAnalyze, 100*time.Millisecond)
	s.CancelAll()

	c.Advance(time.Second)
	if got := drain(s); len(got) != 0 {
		t.Fatalf("firings after CancelAll: got %v", got)
	}
	for _, p := range []Purpose{PurposeReshow, PurposeDriftCheck, PurposeAnalyze} {
		if s.Armed(p) {
			t.Errorf("Armed(%s) after CancelAll: got true", p)
		}
	}
}
