package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/emandor/bookcover_service/internal/rectify"
)

func canvas(w, h int, bg color.Color) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(m, m.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	return m
}

// coverPhoto draws a bright cover rectangle on a dark desk.
func coverPhoto(w, h int, cover image.Rectangle) *image.RGBA {
	m := canvas(w, h, color.RGBA{25, 25, 25, 255})
	draw.Draw(m, cover, &image.Uniform{color.RGBA{220, 200, 90, 255}}, image.Point{}, draw.Src)
	return m
}

func newPipeline(t *testing.T, b rectify.Backend, maxW int) *Pipeline {
	t.Helper()
	p, err := New(Options{MaxWidth: maxW, Quality: 85}, b, zerolog.Nop())
	require.NoError(t, err)
	return p
}

type warpFunc func(image.Image, rectify.OrderedCorners, int, int) (image.Image, error)

func (f warpFunc) Warp(src image.Image, c rectify.OrderedCorners, w, h int) (image.Image, error) {
	return f(src, c, w, h)
}

func withWarper(f warpFunc) rectify.Backend {
	b := rectify.GoBackend()
	b.Warper = f
	return b
}

func TestNewValidatesOptions(t *testing.T) {
	cases := []Options{
		{MaxWidth: 0, Quality: 85},
		{MaxWidth: 1080, Quality: 0},
		{MaxWidth: 1080, Quality: 96},
	}
	for _, o := range cases {
		_, err := New(o, rectify.GoBackend(), zerolog.Nop())
		assert.ErrorIs(t, err, ErrInvalidOptions, "%+v", o)
	}
}

func TestProcessBlankPassesThrough(t *testing.T) {
	src := canvas(300, 200, color.White)
	out, err := newPipeline(t, rectify.GoBackend(), 1080).Process(src)
	require.NoError(t, err)

	assert.False(t, out.Detected)
	assert.Nil(t, out.Corners)
	assert.Same(t, src, out.Image)
	assert.Equal(t, 300, out.Width)
	assert.Equal(t, 200, out.Height)
	assert.False(t, out.Rescaled)
}

func TestProcessRectifiesCover(t *testing.T) {
	src := coverPhoto(400, 300, image.Rect(60, 40, 340, 260))
	out, err := newPipeline(t, rectify.GoBackend(), 1080).Process(src)
	require.NoError(t, err)

	require.True(t, out.Detected)
	require.NotNil(t, out.Corners)
	assert.InDelta(t, 280, out.Width, 8)
	assert.InDelta(t, 220, out.Height, 8)
	assert.NotEmpty(t, out.Bytes)
}

func TestProcessDownscalesWideResult(t *testing.T) {
	wide := warpFunc(func(image.Image, rectify.OrderedCorners, int, int) (image.Image, error) {
		return canvas(4000, 2600, color.RGBA{10, 20, 30, 255}), nil
	})
	src := coverPhoto(400, 300, image.Rect(60, 40, 340, 260))
	out, err := newPipeline(t, withWarper(wide), 1080).Process(src)
	require.NoError(t, err)

	assert.True(t, out.Detected)
	assert.True(t, out.Rescaled)
	assert.Equal(t, 1080, out.Width)
	assert.Equal(t, 702, out.Height)
}

func TestProcessErrorKinds(t *testing.T) {
	cover := coverPhoto(400, 300, image.Rect(60, 40, 340, 260))
	cases := []struct {
		name string
		warp warpFunc
		kind Kind
	}{
		{"degenerate", func(image.Image, rectify.OrderedCorners, int, int) (image.Image, error) {
			return nil, rectify.ErrDegenerateGeometry
		}, KindGeometry},
		{"singular", func(image.Image, rectify.OrderedCorners, int, int) (image.Image, error) {
			return nil, rectify.ErrSingularTransform
		}, KindGeometry},
		{"unexpected", func(image.Image, rectify.OrderedCorners, int, int) (image.Image, error) {
			return nil, errors.New("boom")
		}, KindInternal},
		{"panic", func(image.Image, rectify.OrderedCorners, int, int) (image.Image, error) {
			panic("warp exploded")
		}, KindInternal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := newPipeline(t, withWarper(c.warp), 1080).Process(cover)
			require.Error(t, err)
			assert.Equal(t, c.kind, KindOf(err))
			var pe *Error
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestProcessBytes(t *testing.T) {
	p := newPipeline(t, rectify.GoBackend(), 1080)

	_, err := p.ProcessBytes([]byte("definitely not a png"))
	assert.Equal(t, KindInput, KindOf(err))

	_, err = p.Process(image.NewRGBA(image.Rectangle{}))
	assert.Equal(t, KindInput, KindOf(err))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, coverPhoto(400, 300, image.Rect(60, 40, 340, 260))))
	out, err := p.ProcessBytes(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, out.Detected)
}

func TestProcessConcurrent(t *testing.T) {
	p := newPipeline(t, rectify.GoBackend(), 1080)
	src := coverPhoto(320, 240, image.Rect(40, 30, 280, 210))

	want, err := p.Process(src)
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			got, err := p.Process(src)
			if err != nil {
				return err
			}
			if got.Hash != want.Hash {
				return errors.New("hash mismatch")
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "input", KindInput.String())
	assert.Equal(t, "geometry", KindGeometry.String())
	assert.Equal(t, "encoding", KindEncoding.String())
	assert.Equal(t, "internal", KindInternal.String())
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
}
