package geom

import "testing"

func TestPosDelta(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 100, H: 50}
	b := Rect{X: 3, Y: 4, W: 100, H: 50}

	if got := b.PosDelta(a); got != 5 {
		t.Errorf("PosDelta: got %v, want 5", got)
	}
	if got := a.PosDelta(a); got != 0 {
		t.Errorf("PosDelta same rect: got %v, want 0", got)
	}
}

func TestSizeDelta(t *testing.T) {
	a := Rect{W: 100, H: 50}
	b := Rect{W: 92, H: 57}

	dw, dh := b.SizeDelta(a)
	if dw != 8 || dh != 7 {
		t.Errorf("SizeDelta: got (%v, %v), want (8, 7)", dw, dh)
	}
}

func TestIsZero(t *testing.T) {
	if !(Rect{}).IsZero() {
		t.Error("zero Rect: IsZero = false, want true")
	}
	if (Rect{X: 1}).IsZero() {
		t.Error("non-zero Rect: IsZero = true, want false")
	}
}
