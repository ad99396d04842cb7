//go:build gocv

package rectify

import (
	"image"

	"gocv.io/x/gocv"
)

func init() {
	backends["gocv"] = func() (Backend, error) {
		cv := OpenCV{Params: DefaultEdgeParams}
		return Backend{Name: "gocv", Edges: cv, Contours: cv, Warper: cv}, nil
	}
}

// OpenCV implements the vision primitives with gocv. Mats are created and
// closed inside each call.
type OpenCV struct {
	Params EdgeParams
}

func (o OpenCV) Edges(src image.Image) (*image.Gray, error) {
	img, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, float32(o.Params.LowThreshold), float32(o.Params.HighThreshold))

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	for i := 0; i < o.Params.DilateIterations; i++ {
		gocv.Dilate(edges, &edges, kernel)
	}

	out, err := edges.ToImage()
	if err != nil {
		return nil, err
	}
	if g, ok := out.(*image.Gray); ok {
		return g, nil
	}
	return Grayscale(out), nil
}

func (OpenCV) Contours(edges *image.Gray) []Contour {
	m, err := gocv.ImageGrayToMatGray(edges)
	if err != nil {
		return nil
	}
	defer m.Close()

	pv := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer pv.Close()

	out := make([]Contour, 0, pv.Size())
	for i := 0; i < pv.Size(); i++ {
		c := pv.At(i)
		out = append(out, Contour{Points: c.ToPoints(), Area: gocv.ContourArea(c)})
	}
	sortByArea(out)
	return out
}

func (OpenCV) Warp(src image.Image, c OrderedCorners, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrDegenerateGeometry
	}
	img, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	from := make([]gocv.Point2f, 0, 4)
	for _, p := range c.Array() {
		from = append(from, gocv.Point2f{X: float32(p.X), Y: float32(p.Y)})
	}
	to := make([]gocv.Point2f, 0, 4)
	for _, p := range DestinationCorners(width, height) {
		to = append(to, gocv.Point2f{X: float32(p.X), Y: float32(p.Y)})
	}
	fromV := gocv.NewPoint2fVectorFromPoints(from)
	defer fromV.Close()
	toV := gocv.NewPoint2fVectorFromPoints(to)
	defer toV.Close()

	m := gocv.GetPerspectiveTransform2f(fromV, toV)
	defer m.Close()
	if m.Empty() {
		return nil, ErrSingularTransform
	}

	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpPerspective(img, &warped, m, image.Pt(width, height))

	// ToImage swaps BGR back to RGB
	return warped.ToImage()
}
