package ocr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoReader struct{ calls int }

func (e *echoReader) Read(_ context.Context, img []byte) (Result, error) {
	e.calls++
	return Result{Text: string(img)}, nil
}

func TestThrottledPassesThrough(t *testing.T) {
	inner := &echoReader{}
	r := NewThrottled(inner, 100, 1)

	res, err := r.Read(context.Background(), []byte("TITLE"))
	require.NoError(t, err)
	assert.Equal(t, "TITLE", res.Text)
	assert.Equal(t, 1, inner.calls)
}

func TestThrottledHonoursContext(t *testing.T) {
	inner := &echoReader{}
	r := NewThrottled(inner, 1, 1)

	_, err := r.Read(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Read(ctx, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
