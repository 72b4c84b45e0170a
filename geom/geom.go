// Package geom holds the rectangle and sample types shared by every
// axwatch detector. Coordinates are host screen points; the origin
// convention is whatever the host query returns, axwatch only ever
// compares rectangles against earlier rectangles.
package geom

import (
	"math"
	"time"
)

// Point is a screen position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a window or element rectangle as reported by a host query.
// Sampled, never owned: a Rect is a snapshot, not a live handle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Origin returns the rectangle's position.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// IsZero reports whether the rectangle is the zero value. A zero Rect is
// how detectors represent "no previous sample".
func (r Rect) IsZero() bool { return r == Rect{} }

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Hypot(dx, dy)
}

// PosDelta returns the Euclidean distance between the origins of r and prev.
func (r Rect) PosDelta(prev Rect) float64 {
	return Dist(r.Origin(), prev.Origin())
}

// SizeDelta returns the absolute per-axis size differences between r and prev.
func (r Rect) SizeDelta(prev Rect) (dw, dh float64) {
	return math.Abs(r.W - prev.W), math.Abs(r.H - prev.H)
}

// Sample is a (bounds, timestamp) pair inside one settle episode. The
// sequence of samples is append-only within an episode and discarded when
// the episode restarts.
type Sample struct {
	Bounds Rect      `json:"bounds"`
	At     time.Time `json:"at"`
}
