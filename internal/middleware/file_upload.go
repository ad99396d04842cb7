package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/emandor/bookcover_service/internal/config"
	"github.com/gofiber/fiber/v2"
)

// FileUploadValidator checks type and size of every multipart file before
// the handler reads it. A request without files passes through so the
// handler can answer with its own message.
func FileUploadValidator(cfg *config.Config) fiber.Handler {
	extMap := make(map[string]struct{})
	for _, e := range cfg.AllowedFileExt {
		extMap[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	maxSize := int64(cfg.AllowedMaxFileSize) * 1024 * 1024

	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return reject(c, fiber.NewError(fiber.StatusBadRequest, "invalid multipart form"))
		}

		for _, files := range form.File {
			for _, file := range files {
				if ferr := validateFile(file, extMap, maxSize); ferr != nil {
					return reject(c, ferr)
				}
			}
		}

		return c.Next()
	}
}

func reject(c *fiber.Ctx, e *fiber.Error) error {
	return c.Status(e.Code).JSON(fiber.Map{
		"success": false,
		"error":   e.Message,
		"message": "Failed to process the image",
	})
}

// validateFile checks the file size and extension
func validateFile(file *multipart.FileHeader, extMap map[string]struct{}, maxSize int64) *fiber.Error {
	if maxSize > 0 && file.Size > maxSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := extMap[ext]; !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file type")
	}

	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot open file")
	}
	defer f.Close()

	head := make([]byte, 512) // DetectContentType looks at <= 512 bytes
	n, _ := f.Read(head)
	head = head[:n]

	mimeType := http.DetectContentType(head)

	if !isValidMagic(ext, mimeType, head) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file content")
	}

	return nil
}

// verify magic numbers for jpg/jpeg, png and webp
func isValidMagic(ext, mimeType string, head []byte) bool {
	switch ext {
	case ".jpg", ".jpeg":
		return strings.HasPrefix(mimeType, "image/jpeg") &&
			len(head) > 2 && head[0] == 0xFF && head[1] == 0xD8
	case ".png":
		return strings.HasPrefix(mimeType, "image/png") &&
			bytes.HasPrefix(head, []byte{0x89, 0x50, 0x4E, 0x47})
	case ".webp":
		return strings.HasPrefix(mimeType, "image/webp") &&
			len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
	default:
		return false
	}
}
