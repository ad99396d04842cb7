package cover

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/emandor/bookcover_service/internal/middleware"
	"github.com/emandor/bookcover_service/internal/pipeline"
	"github.com/emandor/bookcover_service/internal/storage"
)

//go:embed index.html
var indexHTML []byte

const (
	defaultListLimit = 20
	maxListLimit     = 100

	msgProcessed = "Book cover detected and processed successfully"
	msgFallback  = "No book cover found, image optimized as uploaded"
	msgFailed    = "Failed to process the image"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Upload(c *fiber.Ctx) error {
	log := h.log.With().Str("req_id", middleware.RequestIDFrom(c)).Logger()

	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No image file provided"})
	}
	if fh.Filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Empty filename"})
	}

	f, err := fh.Open()
	if err != nil {
		return failure(c, fiber.StatusBadRequest, err)
	}
	raw, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return failure(c, fiber.StatusBadRequest, err)
	}

	res, err := h.svc.Process(c.UserContext(), fh.Filename, raw)
	if err != nil {
		status := statusOf(err)
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Msg("upload_fail")
		}
		return failure(c, status, err)
	}

	cv := res.Cover
	msg := msgProcessed
	if !cv.Detected {
		msg = msgFallback
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"id":         cv.ID,
		"url":        cv.URL,
		"public_url": h.svc.PublicURL(cv),
		"message":    msg,
		"width":      cv.Width,
		"height":     cv.Height,
		"rescaled":   cv.Rescaled,
		"detected":   cv.Detected,
		"cached":     res.Cached,
		"ocr_text":   cv.OCRText,
	})
}

func (h *Handler) Processed(c *fiber.Ctx) error {
	p, err := h.svc.ProcessedPath(c.Params("filename"))
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid file name"})
	case err != nil:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.SendFile(p)
}

func (h *Handler) List(c *fiber.Ctx) error {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid limit"})
		}
		limit = min(n, maxListLimit)
	}
	covers, err := h.svc.List(c.UserContext(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("cover_list_fail")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "db fail"})
	}
	return c.JSON(covers)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	cv, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		h.log.Error().Err(err).Msg("cover_get_fail")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "db fail"})
	}
	return c.JSON(cv)
}

func (h *Handler) Index(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

func Health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func failure(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"message": msgFailed,
	})
}

// statusOf maps processing errors onto HTTP status codes.
func statusOf(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusServiceUnavailable
	}
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return fiber.StatusInternalServerError
	}
	switch pe.Kind {
	case pipeline.KindInput:
		return fiber.StatusBadRequest
	case pipeline.KindGeometry:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// Mount registers the cover routes. uploadMW runs before Upload.
func (h *Handler) Mount(r fiber.Router, uploadMW ...fiber.Handler) {
	r.Get("/health", Health)
	r.Get("/healthz", Health)
	r.Get("/", h.Index)
	r.Post("/upload", append(uploadMW, h.Upload)...)
	r.Get("/processed/:filename", h.Processed)

	api := r.Group("/api/v1")
	api.Get("/covers", h.List)
	api.Get("/covers/:id", h.Get)
}
