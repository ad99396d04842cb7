// Package ocr extracts printed text from a rectified cover.
package ocr

import (
	"context"

	"golang.org/x/time/rate"
)

type Result struct {
	Text string `json:"text"`
}

// Reader reads text from encoded image bytes.
type Reader interface {
	Read(ctx context.Context, img []byte) (Result, error)
}

// Throttled waits on a token bucket before each read so bursts of uploads
// do not pile tesseract processes onto the CPU.
type Throttled struct {
	Reader  Reader
	Limiter *rate.Limiter
}

func NewThrottled(r Reader, rps, burst int) *Throttled {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 2
	}
	return &Throttled{Reader: r, Limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) Read(ctx context.Context, img []byte) (Result, error) {
	if err := t.Limiter.Wait(ctx); err != nil {
		return Result{}, err
	}
	return t.Reader.Read(ctx, img)
}
