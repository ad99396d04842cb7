package rectify

import (
	"image"
	"math"
)

// ApproxPolygon simplifies a closed contour with Douglas-Peucker using the
// given tolerance in pixels. Vertices keep contour order.
func ApproxPolygon(pts []image.Point, epsilon float64) Polygon {
	n := len(pts)
	if n <= 3 {
		return append(Polygon(nil), pts...)
	}

	// split the ring at two far apart points so both arcs are open polylines
	a := farthestFrom(pts, 0)
	b := farthestFrom(pts, a)
	if a > b {
		a, b = b, a
	}
	if a == b {
		return Polygon{pts[a]}
	}

	first := pts[a : b+1]
	second := make([]image.Point, 0, n-b+a+1)
	second = append(second, pts[b:]...)
	second = append(second, pts[:a+1]...)

	var poly Polygon
	poly = append(poly, douglasPeucker(first, epsilon)...)
	poly = poly[:len(poly)-1]
	poly = append(poly, douglasPeucker(second, epsilon)...)
	poly = poly[:len(poly)-1]

	return dropCollinear(poly, epsilon)
}

func farthestFrom(pts []image.Point, from int) int {
	best, bestD := from, int64(-1)
	o := pts[from]
	for k, p := range pts {
		dx, dy := int64(p.X-o.X), int64(p.Y-o.Y)
		if d := dx*dx + dy*dy; d > bestD {
			best, bestD = k, d
		}
	}
	return best
}

// douglasPeucker keeps both end points of an open polyline.
func douglasPeucker(pts []image.Point, epsilon float64) []image.Point {
	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, len(pts) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}
		idx, dmax := -1, 0.0
		for k := s.lo + 1; k < s.hi; k++ {
			if d := lineDist(pts[k], pts[s.lo], pts[s.hi]); d > dmax {
				idx, dmax = k, d
			}
		}
		if idx >= 0 && dmax > epsilon {
			keep[idx] = true
			stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
		}
	}

	out := make([]image.Point, 0, len(pts))
	for k, p := range pts {
		if keep[k] {
			out = append(out, p)
		}
	}
	return out
}

// dropCollinear removes vertices lying within epsilon of the line through
// their neighbours. The split points chosen above may sit mid-edge.
func dropCollinear(poly Polygon, epsilon float64) Polygon {
	for changed := true; changed && len(poly) > 3; {
		changed = false
		n := len(poly)
		for k := 0; k < n; k++ {
			prev, next := poly[(k-1+n)%n], poly[(k+1)%n]
			if lineDist(poly[k], prev, next) <= epsilon {
				poly = append(poly[:k], poly[k+1:]...)
				changed = true
				break
			}
		}
	}
	return poly
}

// lineDist is the distance from p to the infinite line through a and b.
func lineDist(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return math.Hypot(float64(p.X-a.X), float64(p.Y-a.Y))
	}
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / norm
}
