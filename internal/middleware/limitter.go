package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimiter caps requests per client IP over window. limit <= 0 disables it.
func RateLimiter(limit int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "rate limit exceeded",
			})
		},
		Next: func(c *fiber.Ctx) bool {
			if limit <= 0 {
				return true
			}
			path := c.Path()
			// skip limiter for static files and health checks
			return path == "/healthz" || path == "/health" || strings.HasPrefix(path, "/processed/")
		},
	})
}
