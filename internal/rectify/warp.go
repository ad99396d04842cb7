package rectify

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// BilinearWarper is the pure-Go Warper. Destination pixels are mapped back
// into the source and sampled bilinearly; samples outside the source are
// opaque black.
type BilinearWarper struct{}

func (BilinearWarper) Warp(src image.Image, c OrderedCorners, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrDegenerateGeometry
	}
	h, err := ComputeHomography(c.Array(), DestinationCorners(width, height))
	if err != nil {
		return nil, err
	}
	inv, err := h.Inverse()
	if err != nil {
		return nil, err
	}

	s := imaging.Clone(src)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := inv.Apply(Point{float64(x), float64(y)})
			i := y*out.Stride + x*4
			sampleBilinear(s, p.X, p.Y, out.Pix[i:i+4:i+4])
		}
	}
	return out, nil
}

// tolerance for float error when a destination corner maps exactly onto a
// source edge
const edgeSlack = 1e-6

func sampleBilinear(src *image.NRGBA, x, y float64, dst []uint8) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if math.IsNaN(x) || math.IsNaN(y) ||
		x < -edgeSlack || y < -edgeSlack || x > float64(w-1)+edgeSlack || y > float64(h-1)+edgeSlack {
		dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 0xff
		return
	}
	x = math.Min(math.Max(x, 0), float64(w-1))
	y = math.Min(math.Max(y, 0), float64(h-1))
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	p00 := src.Pix[y0*src.Stride+x0*4:]
	p10 := src.Pix[y0*src.Stride+x1*4:]
	p01 := src.Pix[y1*src.Stride+x0*4:]
	p11 := src.Pix[y1*src.Stride+x1*4:]
	for c := 0; c < 4; c++ {
		top := float64(p00[c]) + (float64(p10[c])-float64(p00[c]))*fx
		bot := float64(p01[c]) + (float64(p11[c])-float64(p01[c]))*fx
		dst[c] = uint8(top + (bot-top)*fy + 0.5)
	}
}
