package img

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	ErrDecode     = errors.New("img: cannot decode image")
	ErrEmptyImage = errors.New("img: image has zero area")
	ErrEncode     = errors.New("img: cannot encode image")
)

// Decode reads an uploaded jpeg/png/gif/webp, applying EXIF orientation so
// the detector sees the photo the way it was taken.
func Decode(b []byte) (image.Image, error) {
	src, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return src, nil
}
