// Package geometry provides the quadrilateral math shared by every stage of
// the reconstruction pipeline.
package geometry

// Point is a 2D point in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is the bounding quadrilateral of one detected text span: four ordered
// corner points as produced by the OCR engine. Values are immutable once a
// detection is built; Scale returns a new Quad.
type Quad [4]Point

// NewQuadFromRect builds an axis-aligned Quad from rectangle bounds, ordered
// clockwise from the top-left corner.
func NewQuadFromRect(x0, y0, x1, y1 float64) Quad {
	return Quad{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	}
}

// Center returns the arithmetic mean of the four corners.
func (q Quad) Center() Point {
	var sumX, sumY float64
	for _, p := range q {
		sumX += p.X
		sumY += p.Y
	}
	return Point{X: sumX / 4, Y: sumY / 4}
}

// Left returns the minimum X extent.
func (q Quad) Left() float64 {
	v := q[0].X
	for _, p := range q[1:] {
		if p.X < v {
			v = p.X
		}
	}
	return v
}

// Right returns the maximum X extent.
func (q Quad) Right() float64 {
	v := q[0].X
	for _, p := range q[1:] {
		if p.X > v {
			v = p.X
		}
	}
	return v
}

// Top returns the minimum Y extent.
func (q Quad) Top() float64 {
	v := q[0].Y
	for _, p := range q[1:] {
		if p.Y < v {
			v = p.Y
		}
	}
	return v
}

// Bottom returns the maximum Y extent.
func (q Quad) Bottom() float64 {
	v := q[0].Y
	for _, p := range q[1:] {
		if p.Y > v {
			v = p.Y
		}
	}
	return v
}

// Width returns the horizontal extent of the bounding box.
func (q Quad) Width() float64 {
	return q.Right() - q.Left()
}

// Height returns the vertical extent of the bounding box.
func (q Quad) Height() float64 {
	return q.Bottom() - q.Top()
}

// Scale returns the quad with every coordinate multiplied by the per-axis
// factors. Used to map detections on a downsampled image back to original
// pixel space.
func (q Quad) Scale(sx, sy float64) Quad {
	var out Quad
	for i, p := range q {
		out[i] = Point{X: p.X * sx, Y: p.Y * sy}
	}
	return out
}
