package middleware

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WSUpgrade rejects plain HTTP requests on the websocket route and hands
// the request id to the connection.
func WSUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
				"success": false,
				"error":   "websocket upgrade required",
			})
		}
		c.Locals("allowed", true)
		return c.Next()
	}
}
