package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuadDerivedProperties(t *testing.T) {
	// Slightly skewed quad, as a real detector would produce.
	q := Quad{
		{X: 10, Y: 20},
		{X: 110, Y: 22},
		{X: 108, Y: 60},
		{X: 12, Y: 58},
	}

	c := q.Center()
	if !almostEqual(c.X, 60) || !almostEqual(c.Y, 40) {
		t.Errorf("Center() = (%v, %v), want (60, 40)", c.X, c.Y)
	}

	if got := q.Left(); !almostEqual(got, 10) {
		t.Errorf("Left() = %v, want 10", got)
	}
	if got := q.Right(); !almostEqual(got, 110) {
		t.Errorf("Right() = %v, want 110", got)
	}
	if got := q.Top(); !almostEqual(got, 20) {
		t.Errorf("Top() = %v, want 20", got)
	}
	if got := q.Bottom(); !almostEqual(got, 60) {
		t.Errorf("Bottom() = %v, want 60", got)
	}
	if got := q.Width(); !almostEqual(got, 100) {
		t.Errorf("Width() = %v, want 100", got)
	}
	if got := q.Height(); !almostEqual(got, 40) {
		t.Errorf("Height() = %v, want 40", got)
	}
}

func TestNewQuadFromRect(t *testing.T) {
	q := NewQuadFromRect(5, 10, 25, 30)
	if q.Left() != 5 || q.Right() != 25 || q.Top() != 10 || q.Bottom() != 30 {
		t.Errorf("unexpected extents: %+v", q)
	}
}

func TestQuadScale(t *testing.T) {
	q := NewQuadFromRect(10, 10, 20, 20)
	scaled := q.Scale(2, 3)

	if scaled.Left() != 20 || scaled.Right() != 40 {
		t.Errorf("x extents after scale: left=%v right=%v", scaled.Left(), scaled.Right())
	}
	if scaled.Top() != 30 || scaled.Bottom() != 60 {
		t.Errorf("y extents after scale: top=%v bottom=%v", scaled.Top(), scaled.Bottom())
	}

	// Original must be untouched.
	if q.Left() != 10 {
		t.Errorf("Scale mutated the receiver: %+v", q)
	}
}
