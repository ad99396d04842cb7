// Package pipeline wires detection, rectification and normalization into a
// single synchronous call.
package pipeline

import (
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/emandor/bookcover_service/internal/img"
	"github.com/emandor/bookcover_service/internal/rectify"
)

// Options are fixed at construction.
type Options struct {
	MaxWidth int
	Quality  int // 1–95
}

var ErrInvalidOptions = errors.New("pipeline: invalid options")

func (o Options) validate() error {
	if o.MaxWidth <= 0 {
		return fmt.Errorf("%w: max width %d", ErrInvalidOptions, o.MaxWidth)
	}
	if o.Quality < 1 || o.Quality > 95 {
		return fmt.Errorf("%w: quality %d not in 1..95", ErrInvalidOptions, o.Quality)
	}
	return nil
}

// Pipeline is stateless across calls; one value may serve concurrent requests.
type Pipeline struct {
	detector   *rectify.Detector
	normalizer img.Normalizer
	log        zerolog.Logger
}

func New(opts Options, backend rectify.Backend, log zerolog.Logger) (*Pipeline, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		detector:   rectify.NewDetector(backend),
		normalizer: img.Normalizer{MaxWidth: opts.MaxWidth, Quality: opts.Quality},
		log:        log.With().Str("backend", backend.Name).Logger(),
	}, nil
}

type Output struct {
	img.Normalized
	// Detected is false when the photo was passed through unrectified.
	Detected bool
	Corners  *rectify.OrderedCorners
}

// ProcessBytes decodes b and runs Process.
func (p *Pipeline) ProcessBytes(b []byte) (Output, error) {
	src, err := img.Decode(b)
	if err != nil {
		return Output{}, classify("decode", err)
	}
	return p.Process(src)
}

// Process detects and rectifies the cover in src, falling back to src itself
// when no cover qualifies, then normalizes the result.
func (p *Pipeline) Process(src image.Image) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("pipeline_panic")
			out, err = Output{}, &Error{Kind: KindInternal, Op: "process", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if src == nil || src.Bounds().Empty() {
		return Output{}, classify("detect", rectify.ErrEmptySource)
	}

	d, err := p.detector.Detect(src)
	if err != nil {
		p.log.Warn().Err(err).Msg("cover_rectify_fail")
		return Output{}, classify("detect", err)
	}

	switch v := d.(type) {
	case rectify.Rectified:
		c := v.Corners
		out.Detected, out.Corners = true, &c
		p.log.Debug().
			Float64("area", v.Area).
			Int("width", v.Cover.Bounds().Dx()).
			Int("height", v.Cover.Bounds().Dy()).
			Msg("cover_detected")
	case rectify.Original:
		p.log.Debug().Msg("cover_fallback")
	}

	n, err := p.normalizer.Normalize(d.Image())
	if err != nil {
		return Output{}, classify("normalize", err)
	}
	out.Normalized = n
	return out, nil
}
