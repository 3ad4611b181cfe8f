package middleware

import (
	"learning-portal-system/services"

	"github.com/gofiber/fiber/v2"
)

// SessionMiddleware guards routes that require an authenticated backend
// session. The caller must echo the session's access token in
// X-Session-Token; on success the user id lands in ctx locals.
func SessionMiddleware(sync *services.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := sync.Session()
		token := c.Get("X-Session-Token")

		if session == nil || token == "" || token != session.AccessToken {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid session token",
			})
		}

		c.Locals("user_id", session.UserID)
		return c.Next()
	}
}
