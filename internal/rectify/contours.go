package rectify

import (
	"image"
	"slices"
)

// BorderTracer is the pure-Go ContourTracer. It follows borders the way
// Suzuki and Abe describe and keeps only the outer borders of components
// that do not sit inside a hole of another component.
type BorderTracer struct{}

// 8-neighbourhood, counter-clockwise on screen starting east: (drow, dcol).
var nbr = [8][2]int{{0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}}

func dirOf(di, dj int) int {
	for k, d := range nbr {
		if d[0] == di && d[1] == dj {
			return k
		}
	}
	return -1
}

type border struct {
	outer  bool
	parent int
}

// Contours returns the external contours of edges sorted by area, largest first.
func (BorderTracer) Contours(edges *image.Gray) []Contour {
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	// label map with a one pixel zero frame
	pw := w + 2
	f := make([]int32, pw*(h+2))
	for y := 0; y < h; y++ {
		row := edges.Pix[y*edges.Stride:]
		for x := 0; x < w; x++ {
			if row[x] != 0 {
				f[(y+1)*pw+x+1] = 1
			}
		}
	}
	at := func(i, j int) int32 { return f[i*pw+j] }

	// border 1 is the frame, which behaves as a hole
	borders := []border{{}, {outer: false, parent: 0}}
	nbd := int32(1)
	var out []Contour

	for i := 1; i <= h; i++ {
		lnbd := int32(1)
		for j := 1; j <= w; j++ {
			v := at(i, j)
			if v == 0 {
				continue
			}
			var fromI, fromJ int
			outer := false
			switch {
			case v == 1 && at(i, j-1) == 0:
				outer = true
				fromI, fromJ = i, j-1
			case v >= 1 && at(i, j+1) == 0:
				fromI, fromJ = i, j+1
				if v > 1 {
					lnbd = v
				}
			default:
				if v != 1 {
					lnbd = abs32(v)
				}
				continue
			}

			nbd++
			prev := borders[lnbd]
			parent := int(lnbd)
			if outer == prev.outer {
				parent = prev.parent
			}
			borders = append(borders, border{outer: outer, parent: parent})

			pts := follow(f, pw, i, j, fromI, fromJ, nbd)
			if outer && parent == 1 {
				out = append(out, Contour{Points: compressChain(pts)})
			}

			if v := at(i, j); v != 1 {
				lnbd = abs32(v)
			}
		}
	}

	for k := range out {
		out[k].Area = ShoelaceArea(out[k].Points)
	}
	sortByArea(out)
	return out
}

// sortByArea orders contours largest first; equal areas keep trace order.
func sortByArea(cs []Contour) {
	slices.SortStableFunc(cs, func(a, b Contour) int {
		switch {
		case a.Area > b.Area:
			return -1
		case a.Area < b.Area:
			return 1
		}
		return 0
	})
}

// follow traces one border starting at (i,j), marking the label map as it
// goes, and returns the visited pixels in image coordinates.
func follow(f []int32, pw, i, j, fromI, fromJ int, nbd int32) []image.Point {
	at := func(i, j int) int32 { return f[i*pw+j] }
	start := image.Pt(j-1, i-1)

	// clockwise search for the first non-zero neighbour
	d0 := dirOf(fromI-i, fromJ-j)
	i1, j1 := -1, -1
	for k := 0; k < 8; k++ {
		d := nbr[(d0-k+8)%8]
		if at(i+d[0], j+d[1]) != 0 {
			i1, j1 = i+d[0], j+d[1]
			break
		}
	}
	if i1 < 0 {
		f[i*pw+j] = -nbd
		return []image.Point{start}
	}

	pts := []image.Point{start}
	i2, j2 := i1, j1
	i3, j3 := i, j
	for {
		// counter-clockwise search around (i3,j3) starting after (i2,j2)
		d := dirOf(i2-i3, j2-j3)
		var i4, j4 int
		eastZero := false
		for k := 1; k <= 8; k++ {
			dd := (d + k) % 8
			ni, nj := i3+nbr[dd][0], j3+nbr[dd][1]
			if at(ni, nj) != 0 {
				i4, j4 = ni, nj
				break
			}
			if dd == 0 {
				eastZero = true
			}
		}
		if eastZero {
			f[i3*pw+j3] = -nbd
		} else if at(i3, j3) == 1 {
			f[i3*pw+j3] = nbd
		}
		if i4 == i && j4 == j && i3 == i1 && j3 == j1 {
			break
		}
		i2, j2 = i3, j3
		i3, j3 = i4, j4
		pts = append(pts, image.Pt(j3-1, i3-1))
	}
	return pts
}

// compressChain drops points that continue a straight horizontal, vertical
// or diagonal run, keeping the run end points.
func compressChain(pts []image.Point) []image.Point {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]image.Point, 0, n)
	for k := 0; k < n; k++ {
		prev, cur, next := pts[(k-1+n)%n], pts[k], pts[(k+1)%n]
		if cur.Sub(prev) == next.Sub(cur) {
			continue
		}
		out = append(out, cur)
	}
	if len(out) == 0 {
		return pts[:1]
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
