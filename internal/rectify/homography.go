package rectify

import (
	"errors"
	"math"
)

var (
	ErrDegenerateGeometry = errors.New("rectify: degenerate cover geometry")
	ErrSingularTransform  = errors.New("rectify: singular perspective transform")
)

// Homography is a row-major 3x3 projective transform.
type Homography [9]float64

// Apply maps p through h.
func (h Homography) Apply(p Point) Point {
	d := h[6]*p.X + h[7]*p.Y + h[8]
	if d == 0 {
		return Point{math.Inf(1), math.Inf(1)}
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / d,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / d,
	}
}

// Inverse returns h^-1 through the adjugate.
func (h Homography) Inverse() (Homography, error) {
	a11, a12, a13 := h[0], h[1], h[2]
	a21, a22, a23 := h[3], h[4], h[5]
	a31, a32, a33 := h[6], h[7], h[8]
	adj := Homography{
		a22*a33 - a23*a32, a13*a32 - a12*a33, a12*a23 - a13*a22,
		a23*a31 - a21*a33, a11*a33 - a13*a31, a13*a21 - a11*a23,
		a21*a32 - a22*a31, a12*a31 - a11*a32, a11*a22 - a12*a21,
	}
	det := a11*adj[0] + a12*adj[3] + a13*adj[6]
	if math.Abs(det) < 1e-12 {
		return Homography{}, ErrSingularTransform
	}
	for k := range adj {
		adj[k] /= det
	}
	return adj, nil
}

// ComputeHomography solves for the transform taking src[i] to dst[i], with
// h33 fixed to 1.
func ComputeHomography(src, dst [4]Point) (Homography, error) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a[2*i] = [9]float64{x, y, 1, 0, 0, 0, -x * u, -y * u, u}
		a[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -x * v, -y * v, v}
	}

	// gauss-jordan with partial pivoting on the augmented system
	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return Homography{}, ErrSingularTransform
		}
		a[col], a[pivot] = a[pivot], a[col]
		div := a[col][col]
		for c := col; c < 9; c++ {
			a[col][c] /= div
		}
		for r := 0; r < 8; r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			factor := a[r][col]
			for c := col; c < 9; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}

	var h Homography
	for k := 0; k < 8; k++ {
		h[k] = a[k][8]
	}
	h[8] = 1
	return h, nil
}

// DestinationSize returns the rectified cover size: the longer of each pair of
// opposing edges, truncated. Either side being zero is ErrDegenerateGeometry.
func DestinationSize(c OrderedCorners) (width, height int, err error) {
	width = int(math.Max(c.TopRight.Dist(c.TopLeft), c.BottomRight.Dist(c.BottomLeft)))
	height = int(math.Max(c.BottomLeft.Dist(c.TopLeft), c.BottomRight.Dist(c.TopRight)))
	if width <= 0 || height <= 0 {
		return 0, 0, ErrDegenerateGeometry
	}
	return width, height, nil
}

// DestinationCorners are the corners of a width x height rectangle at the
// origin, in the same roles as OrderedCorners.Array. A side of one pixel
// still spans one unit so the corners stay distinct; its single row or
// column then samples along the source's top or left edge.
func DestinationCorners(width, height int) [4]Point {
	w, h := float64(max(width-1, 1)), float64(max(height-1, 1))
	return [4]Point{{0, 0}, {w, 0}, {w, h}, {0, h}}
}
