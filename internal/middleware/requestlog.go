package middleware

import (
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/emandor/bookcover_service/internal/config"
	"github.com/emandor/bookcover_service/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func RequestLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log := telemetry.Component("http")

		ev := log.Info()
		if status := c.Response().StatusCode(); status >= 500 {
			ev = log.Error()
		}
		ev.Str("req_id", RequestIDFrom(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Str("ua", c.Get("User-Agent")).
			Msg("request")
		return err
	}
}

func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log := telemetry.Component("http")
				log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("panic_recovered")
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"error":   "internal error",
				})
			}
		}()
		return c.Next()
	}
}

// CORS allows the configured origins. Credentials are only allowed for an
// explicit origin list; fiber refuses them together with a wildcard.
func CORS(cfg *config.Config) fiber.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           86400,
	})
}
