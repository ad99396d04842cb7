package img

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	DefaultMaxWidth = 1080
	DefaultQuality  = 85
	MIMEJPEG        = "image/jpeg"
)

// Normalizer downsizes to MaxWidth (never up) and re-encodes as JPEG.
type Normalizer struct {
	MaxWidth int
	Quality  int
}

type Normalized struct {
	Image    image.Image
	Bytes    []byte
	MIME     string
	Hash     string
	Width    int
	Height   int
	Rescaled bool
}

// Normalize: flatten alpha/palette → resize proportional → jpeg.
func (n Normalizer) Normalize(src image.Image) (Normalized, error) {
	out := flatten(src)

	rescaled := false
	if n.MaxWidth > 0 && out.Bounds().Dx() > n.MaxWidth {
		out = imaging.Resize(out, n.MaxWidth, 0, imaging.Lanczos)
		rescaled = true
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(Quality(n.Quality))); err != nil {
		return Normalized{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	h := sha256.Sum256(buf.Bytes())
	return Normalized{
		Image:    out,
		Bytes:    buf.Bytes(),
		MIME:     MIMEJPEG,
		Hash:     hex.EncodeToString(h[:]),
		Width:    out.Bounds().Dx(),
		Height:   out.Bounds().Dy(),
		Rescaled: rescaled,
	}, nil
}

// Quality clamps q into the encoder's accepted 1–95 range; 0 means default.
func Quality(q int) int {
	if q == 0 {
		return DefaultQuality
	}
	return clamp(q, 1, 95)
}

// flatten composites images with transparency or a palette onto white so
// the JPEG encoder gets plain RGB.
func flatten(src image.Image) image.Image {
	switch s := src.(type) {
	case *image.Paletted:
	case interface{ Opaque() bool }:
		if s.Opaque() {
			return src
		}
	default:
		return src
	}
	b := src.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
