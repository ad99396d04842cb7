package rectify

import (
	"image"

	"github.com/disintegration/imaging"
)

// EdgeParams configures the edge map builder.
type EdgeParams struct {
	LowThreshold  float64
	HighThreshold float64
	// DilateIterations of a 3x3 rectangular structuring element.
	DilateIterations int
}

// DefaultEdgeParams: 5x5 blur, hysteresis 50/150, one 3x3 dilation.
var DefaultEdgeParams = EdgeParams{LowThreshold: 50, HighThreshold: 150, DilateIterations: 1}

// CannyEdges is the pure-Go EdgeDetector.
type CannyEdges struct {
	Params EdgeParams
}

// Edges builds a binary (0/255) edge map with the same size as src.
func (c CannyEdges) Edges(src image.Image) (*image.Gray, error) {
	gray := Grayscale(src)
	blurred := gaussian5(gray)
	edges := canny(blurred, c.Params.LowThreshold, c.Params.HighThreshold)
	for i := 0; i < c.Params.DilateIterations; i++ {
		edges = dilate3(edges)
	}
	return edges, nil
}

// Grayscale converts src to an 8-bit luma image with a (0,0) origin.
func Grayscale(src image.Image) *image.Gray {
	nrgba := imaging.Grayscale(src)
	b := nrgba.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = row[x*4]
		}
	}
	return out
}

// binomial 5-tap kernel; what a 5x5 gaussian with auto sigma resolves to
var gauss5 = [5]int{1, 4, 6, 4, 1}

func gaussian5(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	// row pass peaks at 255*16, well inside int32
	tmp := make([]int32, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			s := 0
			for k := -2; k <= 2; k++ {
				s += gauss5[k+2] * int(row[reflect101(x+k, w)])
			}
			tmp[y*w+x] = int32(s)
		}
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := 0
			for k := -2; k <= 2; k++ {
				s += gauss5[k+2] * int(tmp[reflect101(y+k, h)*w+x])
			}
			out.Pix[y*out.Stride+x] = uint8((s + 128) >> 8)
		}
	}
	return out
}

// reflect101 maps an out-of-range index back into [0,n) as gfedcb|abcdefgh|gfedcba.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const tan22 = 0.4142135623730950488

// canny runs Sobel gradients (L1 magnitude), non-maximum suppression and
// hysteresis thresholding.
func canny(src *image.Gray, low, high float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	at := func(x, y int) int {
		return int(src.Pix[clampInt(y, 0, h-1)*src.Stride+clampInt(x, 0, w-1)])
	}

	// Sobel on 8-bit input stays within ±1020, its L1 magnitude within 2040
	dx := make([]int16, w*h)
	dy := make([]int16, w*h)
	mag := make([]int16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			i := y*w + x
			dx[i], dy[i] = int16(gx), int16(gy)
			mag[i] = int16(abs(gx) + abs(gy))
		}
	}
	m := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return int(mag[y*w+x])
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	stack := make([]int, 0, 1024)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			v := int(mag[i])
			if float64(v) <= low {
				continue
			}
			ax, ay := float64(abs(int(dx[i]))), float64(abs(int(dy[i])))
			tg22x := ax * tan22
			var peak bool
			switch {
			case ay < tg22x:
				peak = v > m(x-1, y) && v >= m(x+1, y)
			case ay > tg22x+2*ax:
				peak = v > m(x, y-1) && v >= m(x, y+1)
			default:
				s := 1
				if (dx[i] < 0) != (dy[i] < 0) {
					s = -1
				}
				peak = v > m(x-s, y-1) && v > m(x+s, y+1)
			}
			if !peak {
				continue
			}
			if float64(v) > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	// grow strong edges through 8-connected weak pixels
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, s := range state {
		if s == strong {
			out.Pix[(i/w)*out.Stride+i%w] = 255
		}
	}
	return out
}

// dilate3 applies a 3x3 max filter.
func dilate3(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8
			for ny := max(y-1, 0); ny <= min(y+1, h-1) && v < 255; ny++ {
				for nx := max(x-1, 0); nx <= min(x+1, w-1); nx++ {
					if p := src.Pix[ny*src.Stride+nx]; p > v {
						v = p
					}
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
