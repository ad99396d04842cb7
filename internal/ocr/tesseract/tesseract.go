// Package tesseract reads cover text with libtesseract through gosseract.
package tesseract

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/emandor/bookcover_service/internal/ocr"
)

// Reader runs a fresh gosseract client per call; clients are not safe
// for concurrent use.
type Reader struct {
	Lang string
}

func (t Reader) Read(ctx context.Context, img []byte) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if t.Lang != "" {
		if err := client.SetLanguage(strings.Split(t.Lang, "+")...); err != nil {
			return ocr.Result{}, err
		}
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return ocr.Result{}, err
	}
	txt, err := client.Text()
	if err != nil {
		return ocr.Result{}, err
	}
	return ocr.Result{Text: strings.TrimSpace(txt)}, nil
}

var _ ocr.Reader = Reader{}
