// Package geom provides the planar geometry used by the lip pipeline:
// points, closed rings, axis-aligned rectangles and their measurements.
package geom

import "math"

// Point is a 2D point in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ring is an ordered, closed polygon. The last point connects back to the first.
type Ring []Point

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Clone returns a copy of the ring that does not share storage with r.
func (r Ring) Clone() Ring {
	if r == nil {
		return nil
	}
	out := make(Ring, len(r))
	copy(out, r)
	return out
}

// Centroid returns the mean of the ring's vertices.
// An empty ring has its centroid at the origin.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// BBox returns the bounding box of the points. Width and height are clamped
// to at least 1px so callers can divide by them safely.
func BBox(points []Point) Rect {
	if len(points) == 0 {
		return Rect{W: 1, H: 1}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{
		X: minX,
		Y: minY,
		W: math.Max(1, maxX-minX),
		H: math.Max(1, maxY-minY),
	}
}

// PolygonArea returns the unsigned area of the ring using the shoelace formula.
func PolygonArea(points []Point) float64 {
	return math.Abs(SignedArea(points))
}

// SignedArea returns the shoelace area of the ring. The sign encodes the
// winding direction: positive for clockwise in image coordinates (y down).
func SignedArea(points []Point) float64 {
	var area float64
	for i, j := 0, len(points)-1; i < len(points); j, i = i, i+1 {
		area += points[j].X*points[i].Y - points[i].X*points[j].Y
	}
	return area * 0.5
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// ScaleAbout scales every vertex of the ring by s around the ring's centroid.
func ScaleAbout(r Ring, s float64) Ring {
	if len(r) == 0 {
		return r
	}
	c := Centroid(r)
	out := make(Ring, len(r))
	for i, p := range r {
		out[i] = Point{X: c.X + (p.X-c.X)*s, Y: c.Y + (p.Y-c.Y)*s}
	}
	return out
}

// Pad grows the rectangle by pad on every side.
func (r Rect) Pad(pad float64) Rect {
	return Rect{X: r.X - pad, Y: r.Y - pad, W: r.W + pad*2, H: r.H + pad*2}
}

// Area returns the rectangle's area, treating negative extents as empty.
func (r Rect) Area() float64 {
	return math.Max(0, r.W) * math.Max(0, r.H)
}

// IntersectArea returns the area shared by two rectangles.
func IntersectArea(a, b Rect) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.W, b.X+b.W)
	y2 := math.Min(a.Y+a.H, b.Y+b.H)
	return math.Max(0, x2-x1) * math.Max(0, y2-y1)
}

// Clamp01 limits x to the range [0, 1].
func Clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
