package handlers

import (
	"strconv"

	"learning-portal-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSearchRoutes(app *fiber.App, search *services.SearchService) {
	api := app.Group("/api")

	api.Get("/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		hits := search.Search(query, limit)
		return c.JSON(fiber.Map{
			"query":   query,
			"count":   len(hits),
			"results": hits,
		})
	})

	api.Get("/search/suggestions", func(c *fiber.Ctx) error {
		query := c.Query("q")
		return c.JSON(fiber.Map{
			"suggestions": search.Suggestions(query, 5),
		})
	})
}
