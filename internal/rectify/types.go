package rectify

import (
	"image"
	"math"
)

// Point is a 2D point in image coordinates (x right, y down).
type Point struct {
	X, Y float64
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Contour is a closed boundary traced from an edge map.
type Contour struct {
	Points []image.Point
	Area   float64
}

// Polygon is a simplified closed polyline. A 4-vertex polygon is a quad candidate.
type Polygon []image.Point

// Quad is an accepted 4-vertex candidate together with the area of the contour
// it was simplified from.
type Quad struct {
	Vertices [4]Point
	Area     float64
}

// OrderedCorners holds the four cover corners in fixed roles.
type OrderedCorners struct {
	TopLeft, TopRight, BottomRight, BottomLeft Point
}

// Array returns the corners clockwise starting at top-left.
func (c OrderedCorners) Array() [4]Point {
	return [4]Point{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// ShoelaceArea returns the absolute enclosed area of a closed polyline.
func ShoelaceArea(pts []image.Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var s int64
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		s += int64(a.X)*int64(b.Y) - int64(b.X)*int64(a.Y)
	}
	return math.Abs(float64(s)) / 2
}

// ArcLength returns the perimeter of a closed polyline.
func ArcLength(pts []image.Point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var l float64
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		l += math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
	}
	return l
}

func toPoint(p image.Point) Point { return Point{X: float64(p.X), Y: float64(p.Y)} }
