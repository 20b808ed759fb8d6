// Package geom provides the 2D primitives used by mask annotations.
//
// Coordinates are in page-raster pixel space with the origin at the
// top-left corner, x growing right and y growing down.
package geom

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point represents a 2D point.
type Point struct {
	X, Y float64
}

// MarshalJSON encodes the point as a [x, y] pair, the sidecar wire format.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a [x, y] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("point must be a [x, y] pair: %w", err)
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

// Scale returns the point scaled uniformly by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// BBox is an axis-aligned bounding box. X0/Y0 is the top-left corner,
// X1/Y1 the bottom-right; X0 <= X1 and Y0 <= Y1 for non-degenerate boxes.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// MarshalJSON encodes the box as [x0, y0, x1, y1], the sidecar wire format.
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X0, b.Y0, b.X1, b.Y1})
}

// UnmarshalJSON decodes a [x0, y0, x1, y1] quad.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var quad [4]float64
	if err := json.Unmarshal(data, &quad); err != nil {
		return fmt.Errorf("bbox must be a [x0, y0, x1, y1] quad: %w", err)
	}
	b.X0, b.Y0, b.X1, b.Y1 = quad[0], quad[1], quad[2], quad[3]
	return nil
}

// BBoxFromPoints computes the bounding box of a point sequence.
func BBoxFromPoints(pts []Point) BBox {
	if len(pts) == 0 {
		return BBox{}
	}
	b := BBox{X0: pts[0].X, Y0: pts[0].Y, X1: pts[0].X, Y1: pts[0].Y}
	for _, p := range pts[1:] {
		b.X0 = math.Min(b.X0, p.X)
		b.Y0 = math.Min(b.Y0, p.Y)
		b.X1 = math.Max(b.X1, p.X)
		b.Y1 = math.Max(b.Y1, p.Y)
	}
	return b
}

// Width returns the box width.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns the box height.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Area returns the box area.
func (b BBox) Area() float64 { return b.Width() * b.Height() }

// Union returns the smallest box covering both boxes.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, other.X0),
		Y0: math.Min(b.Y0, other.Y0),
		X1: math.Max(b.X1, other.X1),
		Y1: math.Max(b.Y1, other.Y1),
	}
}

// Intersects checks whether two boxes overlap or touch.
func (b BBox) Intersects(other BBox) bool {
	return !(b.X1 < other.X0 || b.X0 > other.X1 ||
		b.Y1 < other.Y0 || b.Y0 > other.Y1)
}

// Expand grows the box by margin on all sides.
func (b BBox) Expand(margin float64) BBox {
	return BBox{X0: b.X0 - margin, Y0: b.Y0 - margin, X1: b.X1 + margin, Y1: b.Y1 + margin}
}

// Clamp restricts the box to lie inside bounds.
func (b BBox) Clamp(bounds BBox) BBox {
	return BBox{
		X0: math.Max(b.X0, bounds.X0),
		Y0: math.Max(b.Y0, bounds.Y0),
		X1: math.Min(b.X1, bounds.X1),
		Y1: math.Min(b.Y1, bounds.Y1),
	}
}

// Scale returns the box scaled uniformly by f.
func (b BBox) Scale(f float64) BBox {
	return BBox{X0: b.X0 * f, Y0: b.Y0 * f, X1: b.X1 * f, Y1: b.Y1 * f}
}

// Points returns the four corners of the box, clockwise from top-left.
func (b BBox) Points() []Point {
	return []Point{
		{X: b.X0, Y: b.Y0},
		{X: b.X1, Y: b.Y0},
		{X: b.X1, Y: b.Y1},
		{X: b.X0, Y: b.Y1},
	}
}

// ScalePoints returns a new point sequence scaled uniformly by f.
func ScalePoints(pts []Point, f float64) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = p.Scale(f)
	}
	return out
}

// PolygonArea returns the absolute area of an implicitly closed polygon
// via the shoelace formula.
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}

// IsSimplePolygon reports whether the implicitly closed polygon has at
// least 3 vertices, positive area, and no two non-adjacent edges that
// intersect. Edges sharing a vertex are allowed to touch at that vertex.
func IsSimplePolygon(pts []Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	if PolygonArea(pts) <= 0 {
		return false
	}
	for i := 0; i < n; i++ {
		a1 := pts[i]
		a2 := pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip the edge itself and edges adjacent to it.
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			b1 := pts[j]
			b2 := pts[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return false
			}
		}
	}
	return true
}

// segmentsIntersect reports whether segments a1-a2 and b1-b2 cross or
// overlap, including collinear overlap.
func segmentsIntersect(a1, a2, b1, b2 Point) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear cases: a point of one segment lies on the other.
	if d1 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if d2 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	if d3 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if d4 == 0 && onSegment(a1, a2, b2) {
		return true
	}
	return false
}

// cross returns the z-component of (b-a) x (p-a).
func cross(a, b, p Point) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// onSegment reports whether p lies within the bounding box of segment a-b.
// Callers must have established collinearity first.
func onSegment(a, b, p Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}
