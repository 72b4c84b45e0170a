package stability

import (
	"testing"
	"time"

	"github.com/hazyhaar/axwatch/geom"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func contentGate() *Gate {
	return NewGate(Config{
		PosTolerance:   3,
		WidthTolerance: 2,
		Required:       4,
		Ceiling:        time.Second,
	})
}

func sampleAt(g *Gate, r geom.Rect, offset time.Duration) Verdict {
	return g.Observe(geom.Sample{Bounds: r, At: t0.Add(offset)})
}

func TestGateSettlesOnExactlyFourthSample(t *testing.T) {
	g := contentGate()
	base := geom.Rect{X: 100, Y: 200, W: 400, H: 120}
	g.BeginWith(t0, base)

	// Each sample drifts within tolerance of the previous one.
	steps := []geom.Rect{
		{X: 101, Y: 200, W: 401, H: 120},
		{X: 102, Y: 201, W: 401, H: 121},
		{X: 102, Y: 202, W: 402, H: 121},
		{X: 103, Y: 202, W: 402, H: 122},
	}
	for i, r := range steps {
		v := sampleAt(g, r, time.Duration(i+1)*100*time.Millisecond)
		if i < 3 && v != Pending {
			t.Fatalf("sample %d: got %v, want pending", i+1, v)
		}
		if i == 3 && v != Settled {
			t.Fatalf("sample 4: got %v, want settled", v)
		}
	}
}

func TestGateRestartsRunOnUnstableSample(t *testing.T) {
	g := contentGate()
	g.BeginWith(t0, geom.Rect{X: 100, Y: 200, W: 400, H: 120})

	sampleAt(g, geom.Rect{X: 100, Y: 200, W: 400, H: 120}, 100*time.Millisecond)
	sampleAt(g, geom.Rect{X: 100, Y: 200, W: 400, H: 120}, 200*time.Millisecond)
	if g.StableCount() != 2 {
		t.Fatalf("StableCount: got %d, want 2", g.StableCount())
	}

	// 10px jump exceeds the 3px tolerance.
	v := sampleAt(g, geom.Rect{X: 110, Y: 200, W: 400, H: 120}, 300*time.Millisecond)
	if v != Pending {
		t.Fatalf("unstable sample verdict: got %v, want pending", v)
	}
	if g.StableCount() != 0 {
		t.Errorf("StableCount after jump: got %d, want 0", g.StableCount())
	}

	// The run restarts against the new baseline.
	for i := 0; i < 4; i++ {
		v = sampleAt(g, geom.Rect{X: 110, Y: 200, W: 400, H: 120},
			time.Duration(4+i)*100*time.Millisecond)
	}
	if v != Settled {
		t.Errorf("after restart: got %v, want settled", v)
	}
}

func TestGateCeilingForcesCompletion(t *testing.T) {
	g := contentGate()
	g.BeginWith(t0, geom.Rect{X: 0, Y: 0, W: 100, H: 100})

	// Keep jumping so stability is never reached.
	for i := 1; i <= 9; i++ {
		v := sampleAt(g, geom.Rect{X: float64(i * 50), W: 100, H: 100},
			time.Duration(i)*100*time.Millisecond)
		if v != Pending {
			t.Fatalf("sample %d: got %v, want pending", i, v)
		}
	}

	// The 1s ceiling passes on the 10th sample.
	v := sampleAt(g, geom.Rect{X: 9999, W: 100, H: 100}, time.Second)
	if v != TimedOut {
		t.Fatalf("at ceiling: got %v, want timed-out", v)
	}
	if !g.Done() {
		t.Error("Done: got false after timeout")
	}
	// Further observations keep reporting the concluded verdict.
	if v := sampleAt(g, geom.Rect{X: 1, W: 100, H: 100}, 2*time.Second); v != TimedOut {
		t.Errorf("post-timeout observe: got %v, want timed-out", v)
	}
}

func TestGateHeightNotGated(t *testing.T) {
	g := contentGate()
	g.BeginWith(t0, geom.Rect{X: 100, Y: 200, W: 400, H: 120})

	// Height grows every sample; position and width stay put.
	var v Verdict
	for i := 0; i < 4; i++ {
		v = sampleAt(g, geom.Rect{X: 100, Y: 200, W: 400, H: float64(120 + 30*i)},
			time.Duration(i+1)*100*time.Millisecond)
	}
	if v != Settled {
		t.Errorf("height-only growth: got %v, want settled", v)
	}
}

func TestGateSingleComparisonMode(t *testing.T) {
	g := NewGate(Config{PosTolerance: 5, WidthTolerance: 5, Required: 1})
	g.BeginWith(t0, geom.Rect{X: 100, Y: 100, W: 300, H: 80})

	if v := sampleAt(g, geom.Rect{X: 102, Y: 101, W: 300, H: 80}, 50*time.Millisecond); v != Settled {
		t.Errorf("one stable comparison: got %v, want settled", v)
	}
}

func TestRetryBudget(t *testing.T) {
	b := NewRetryBudget(3)
	for i := 0; i < 3; i++ {
		if !b.Spend() {
			t.Fatalf("Spend %d: got false, want true", i+1)
		}
	}
	if b.Spend() {
		t.Error("Spend beyond budget: got true, want false")
	}
	if !b.Exhausted() {
		t.Error("Exhausted: got false")
	}
	if b.Used() != 3 {
		t.Errorf("Used: got %d, want 3", b.Used())
	}

	b.Reset()
	if b.Exhausted() || b.Used() != 0 {
		t.Errorf("after Reset: used=%d exhausted=%v", b.Used(), b.Exhausted())
	}
}
