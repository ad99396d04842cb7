package rectify

// OrderCorners assigns roles to four unordered points:
//
//	top-left      smallest x+y
//	bottom-right  largest x+y
//	top-right     smallest y-x
//	bottom-left   largest y-x
//
// Ties go to the earliest point in pts.
func OrderCorners(pts [4]Point) OrderedCorners {
	sum := func(p Point) float64 { return p.X + p.Y }
	diff := func(p Point) float64 { return p.Y - p.X }
	return OrderedCorners{
		TopLeft:     pts[argBest(pts, sum, false)],
		TopRight:    pts[argBest(pts, diff, false)],
		BottomRight: pts[argBest(pts, sum, true)],
		BottomLeft:  pts[argBest(pts, diff, true)],
	}
}

func argBest(pts [4]Point, key func(Point) float64, largest bool) int {
	best := 0
	for k := 1; k < len(pts); k++ {
		v, b := key(pts[k]), key(pts[best])
		if (largest && v > b) || (!largest && v < b) {
			best = k
		}
	}
	return best
}
