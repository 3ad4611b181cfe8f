package handlers

import (
	"learning-portal-system/middleware"
	"learning-portal-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, sync *services.SyncService) {
	api := app.Group("/api/auth")

	api.Post("/signin", func(c *fiber.Ctx) error {
		if !sync.Enabled() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "no backend configured, running in offline mode",
			})
		}

		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&body); err != nil || body.Email == "" || body.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and password required"})
		}

		session, err := sync.SignIn(c.Context(), body.Email, body.Password)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in failed"})
		}

		return c.JSON(fiber.Map{
			"userId":    session.UserID,
			"email":     session.Email,
			"token":     session.AccessToken,
			"expiresAt": session.ExpiresAt,
		})
	})

	api.Post("/signout", middleware.SessionMiddleware(sync), func(c *fiber.Ctx) error {
		sync.SignOut()
		return c.JSON(fiber.Map{"status": "signed out"})
	})
}
