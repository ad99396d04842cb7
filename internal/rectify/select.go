package rectify

const (
	// approximation tolerance as a fraction of the contour perimeter
	approxFraction = 0.02
	// a candidate must enclose more than 1/minAreaDivisor of the frame
	minAreaDivisor = 20
)

// SelectQuad walks contours largest first and returns the first one whose
// simplified polygon has exactly four vertices and whose area exceeds 1/20 of
// the frame. This is a greedy pick; later candidates are never compared.
// ok is false when nothing qualifies.
func SelectQuad(contours []Contour, width, height int) (q Quad, ok bool) {
	floor := float64(width) * float64(height) / minAreaDivisor
	for _, c := range contours {
		if c.Area <= floor {
			// sorted descending, nothing further can pass
			break
		}
		poly := ApproxPolygon(c.Points, approxFraction*ArcLength(c.Points))
		if len(poly) != 4 {
			continue
		}
		q.Area = c.Area
		for k, p := range poly {
			q.Vertices[k] = toPoint(p)
		}
		return q, true
	}
	return Quad{}, false
}
