// Package rectify finds a book cover in a photo and warps it to a
// fronto-parallel rectangle.
//
// The vision primitives sit behind EdgeDetector, ContourTracer and Warper so
// a backend can be swapped without touching selection or ordering logic. The
// default backend is pure Go; building with the gocv tag adds an OpenCV one.
package rectify

import (
	"errors"
	"fmt"
	"image"
	"sort"
)

// EdgeDetector turns a colour image into a binary edge map of the same size
// with a (0,0) origin.
type EdgeDetector interface {
	Edges(src image.Image) (*image.Gray, error)
}

// ContourTracer returns external contours sorted by area, largest first.
type ContourTracer interface {
	Contours(edges *image.Gray) []Contour
}

// Warper resamples src so the ordered corners land on a width x height
// rectangle at the origin.
type Warper interface {
	Warp(src image.Image, c OrderedCorners, width, height int) (image.Image, error)
}

// Backend bundles one implementation of each primitive.
type Backend struct {
	Name     string
	Edges    EdgeDetector
	Contours ContourTracer
	Warper   Warper
}

// GoBackend returns the pure-Go primitives.
func GoBackend() Backend {
	return Backend{
		Name:     "go",
		Edges:    CannyEdges{Params: DefaultEdgeParams},
		Contours: BorderTracer{},
		Warper:   BilinearWarper{},
	}
}

var backends = map[string]func() (Backend, error){
	"go": func() (Backend, error) { return GoBackend(), nil },
}

var (
	ErrUnknownBackend = errors.New("rectify: unknown backend")
	ErrEmptySource    = errors.New("rectify: empty source image")
)

// NewBackend looks up a backend by name. An empty name means "go".
func NewBackend(name string) (Backend, error) {
	if name == "" {
		name = "go"
	}
	mk, ok := backends[name]
	if !ok {
		return Backend{}, fmt.Errorf("%w %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	return mk()
}

// Backends lists the registered backend names.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Detection is either Rectified or Original.
type Detection interface {
	Image() image.Image
	detection()
}

// Rectified is a detected and straightened cover.
type Rectified struct {
	Cover   image.Image
	Corners OrderedCorners
	// Area of the contour the cover was found on, in source pixels.
	Area float64
}

// Original is the untouched input, returned when no cover qualified.
type Original struct {
	Source image.Image
}

func (r Rectified) Image() image.Image { return r.Cover }
func (o Original) Image() image.Image  { return o.Source }
func (Rectified) detection()           {}
func (Original) detection()            {}

// Detector runs the detection and rectification stages. It holds no mutable
// state and is safe for concurrent use.
type Detector struct {
	backend Backend
}

func NewDetector(b Backend) *Detector {
	return &Detector{backend: b}
}

// Detect locates the cover quadrilateral in src and rectifies it. A miss is
// not an error: the result is Original{src}. Degenerate corner geometry
// yields ErrDegenerateGeometry or ErrSingularTransform.
func (d *Detector) Detect(src image.Image) (Detection, error) {
	b := src.Bounds()
	if b.Empty() {
		return nil, ErrEmptySource
	}

	edges, err := d.backend.Edges.Edges(src)
	if err != nil {
		return nil, fmt.Errorf("rectify: %s edges: %w", d.backend.Name, err)
	}
	contours := d.backend.Contours.Contours(edges)
	quad, ok := SelectQuad(contours, b.Dx(), b.Dy())
	if !ok {
		return Original{Source: src}, nil
	}

	corners := OrderCorners(quad.Vertices)
	w, h, err := DestinationSize(corners)
	if err != nil {
		return nil, err
	}
	cover, err := d.backend.Warper.Warp(src, corners, w, h)
	if err != nil {
		return nil, err
	}
	return Rectified{Cover: cover, Corners: corners, Area: quad.Area}, nil
}
