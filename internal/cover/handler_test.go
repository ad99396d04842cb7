package cover

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emandor/bookcover_service/internal/model"
	"github.com/emandor/bookcover_service/internal/pipeline"
	"github.com/emandor/bookcover_service/internal/rectify"
	"github.com/emandor/bookcover_service/internal/storage"
)

type recorder struct {
	mu        sync.Mutex
	processed []model.Cover
	failed    []pipeline.Kind
}

func (r *recorder) Processed(c model.Cover) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, c)
}

func (r *recorder) Failed(_ string, kind pipeline.Kind, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, kind)
}

func newTestApp(t *testing.T) (*fiber.App, *recorder) {
	t.Helper()
	app, ev, _ := newTestAppWith(t, "")
	return app, ev
}

func newTestAppWith(t *testing.T, baseURL string) (*fiber.App, *recorder, *storage.Dirs) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.New(filepath.Join(root, "uploads"), filepath.Join(root, "processed"))
	require.NoError(t, err)
	pipe, err := pipeline.New(pipeline.Options{MaxWidth: 1080, Quality: 85}, rectify.GoBackend(), zerolog.Nop())
	require.NoError(t, err)

	ev := &recorder{}
	svc := NewService(Deps{
		Pipeline: pipe,
		Backend:  "go",
		Store:    store,
		Repo:     NewMemoryRepository(),
		Workers:  2,
		Events:   ev,
		Log:      zerolog.Nop(),
		BaseURL:  baseURL,
	})
	app := fiber.New()
	NewHandler(svc, zerolog.Nop()).Mount(app)
	return app, ev, store
}

func pngOf(t *testing.T, m image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, m))
	return buf.Bytes()
}

func blankPhoto(w, h int) image.Image {
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(m, m.Bounds(), &image.Uniform{color.RGBA{240, 240, 240, 255}}, image.Point{}, draw.Src)
	return m
}

func coverPhoto() image.Image {
	m := image.NewRGBA(image.Rect(0, 0, 400, 300))
	draw.Draw(m, m.Bounds(), &image.Uniform{color.RGBA{30, 30, 30, 255}}, image.Point{}, draw.Src)
	draw.Draw(m, image.Rect(70, 50, 330, 250), &image.Uniform{color.RGBA{210, 80, 60, 255}}, image.Point{}, draw.Src)
	return m
}

func upload(t *testing.T, app *fiber.App, field, filename string, body []byte) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func get(t *testing.T, app *fiber.App, url string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil), -1)
	require.NoError(t, err)
	return resp
}

func TestUploadMissingImage(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := upload(t, app, "file", "cover.png", []byte("x"))

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No image file provided", body["error"])
}

func TestUploadDetectedCover(t *testing.T) {
	app, ev := newTestApp(t)
	resp, body := upload(t, app, "image", "shelf.png", pngOf(t, coverPhoto()))

	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["detected"])
	assert.Equal(t, msgProcessed, body["message"])
	assert.Regexp(t, `^/processed/[0-9a-f-]{36}\.jpg$`, body["url"])
	assert.InDelta(t, 260, body["width"], 8)
	assert.InDelta(t, 200, body["height"], 8)
	require.Len(t, ev.processed, 1)

	img := get(t, app, body["url"].(string))
	assert.Equal(t, fiber.StatusOK, img.StatusCode)
	b, _ := io.ReadAll(img.Body)
	assert.True(t, bytes.HasPrefix(b, []byte{0xFF, 0xD8}))
}

func TestUploadFallbackKeepsSize(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := upload(t, app, "image", "blank.png", pngOf(t, blankPhoto(320, 200)))

	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, false, body["detected"])
	assert.Equal(t, msgFallback, body["message"])
	assert.EqualValues(t, 320, body["width"])
	assert.EqualValues(t, 200, body["height"])
	assert.Equal(t, false, body["rescaled"])
}

func TestUploadUndecodable(t *testing.T) {
	app, ev, store := newTestAppWith(t, "")
	resp, body := upload(t, app, "image", "cover.png", []byte("not an image at all"))

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, msgFailed, body["message"])
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, []pipeline.Kind{pipeline.KindInput}, ev.failed)

	left, err := os.ReadDir(store.Uploads)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestUploadKeepsRawOnSuccess(t *testing.T) {
	app, _, store := newTestAppWith(t, "")
	resp, body := upload(t, app, "image", "blank.png", pngOf(t, blankPhoto(40, 30)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	left, err := os.ReadDir(store.Uploads)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, body["id"].(string)+".png", left[0].Name())
}

func TestUploadPublicURL(t *testing.T) {
	cases := []struct {
		name, base, prefix string
	}{
		{"relative", "", "/processed/"},
		{"absolute", "https://covers.example/", "https://covers.example/processed/"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			app, _, _ := newTestAppWith(t, c.base)
			_, body := upload(t, app, "image", "blank.png", pngOf(t, blankPhoto(40, 30)))
			assert.Equal(t, c.prefix+body["id"].(string)+".jpg", body["public_url"])
			assert.Equal(t, "/processed/"+body["id"].(string)+".jpg", body["url"])
		})
	}
}

func TestGalleryListAndGet(t *testing.T) {
	app, _ := newTestApp(t)
	_, first := upload(t, app, "image", "a.png", pngOf(t, blankPhoto(64, 48)))
	_, second := upload(t, app, "image", "b.png", pngOf(t, blankPhoto(80, 60)))

	resp := get(t, app, "/api/v1/covers?limit=10")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []model.Cover
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, second["id"], list[0].ID)
	assert.Equal(t, "b.png", list[0].OriginalName)

	resp = get(t, app, "/api/v1/covers?limit=1")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)

	assert.Equal(t, fiber.StatusBadRequest, get(t, app, "/api/v1/covers?limit=zero").StatusCode)

	resp = get(t, app, "/api/v1/covers/"+first["id"].(string))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var c model.Cover
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	assert.Equal(t, 64, c.Width)

	assert.Equal(t, fiber.StatusNotFound, get(t, app, "/api/v1/covers/missing").StatusCode)
}

func TestProcessedNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	assert.Equal(t, fiber.StatusNotFound, get(t, app, "/processed/nope.jpg").StatusCode)
	assert.Equal(t, fiber.StatusBadRequest, get(t, app, "/processed/.env").StatusCode)
}

func TestHealthAndIndex(t *testing.T) {
	app, _ := newTestApp(t)
	for _, p := range []string{"/health", "/healthz"} {
		assert.Equal(t, fiber.StatusOK, get(t, app, p).StatusCode)
	}
	resp := get(t, app, "/")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"input", &pipeline.Error{Kind: pipeline.KindInput}, 400},
		{"geometry", &pipeline.Error{Kind: pipeline.KindGeometry}, 422},
		{"encoding", &pipeline.Error{Kind: pipeline.KindEncoding}, 500},
		{"internal", &pipeline.Error{Kind: pipeline.KindInternal}, 500},
		{"foreign", errors.New("disk full"), 500},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, statusOf(c.err))
		})
	}
}
