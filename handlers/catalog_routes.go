package handlers

import (
	"learning-portal-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, catalog *services.CatalogService, progress *services.ProgressService, recommend *services.RecommendationService) {
	api := app.Group("/api")

	api.Get("/courses", func(c *fiber.Ctx) error {
		courses := catalog.Courses()
		out := make([]fiber.Map, 0, len(courses))
		for i := range courses {
			course := &courses[i]
			out = append(out, fiber.Map{
				"course":   course,
				"progress": progress.GetCourseProgress(course.ID, course.LearningPaths),
			})
		}
		return c.JSON(fiber.Map{"courses": out})
	})

	api.Get("/courses/:courseId", func(c *fiber.Ctx) error {
		course := catalog.Course(c.Params("courseId"))
		if course == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
		}
		return c.JSON(fiber.Map{
			"course":   course,
			"progress": progress.GetCourseProgress(course.ID, course.LearningPaths),
		})
	})

	api.Get("/courses/:courseId/next", func(c *fiber.Ctx) error {
		course := catalog.Course(c.Params("courseId"))
		if course == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
		}
		return c.JSON(fiber.Map{
			"suggestion": recommend.SuggestedNextLesson(course.ID, course.LearningPaths),
		})
	})

	api.Post("/courses/:courseId/reset", func(c *fiber.Ctx) error {
		course := catalog.Course(c.Params("courseId"))
		if course == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
		}
		progress.ResetCourseProgress(course.ID)
		return c.JSON(fiber.Map{"status": "reset", "courseId": course.ID})
	})

	api.Get("/current-course", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"courseId": progress.CurrentCourse()})
	})

	api.Put("/current-course", func(c *fiber.Ctx) error {
		var body struct {
			CourseID string `json:"courseId"`
		}
		if err := c.BodyParser(&body); err != nil || body.CourseID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "courseId required"})
		}
		if catalog.Course(body.CourseID) == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
		}
		progress.SetCurrentCourse(body.CourseID)
		return c.JSON(fiber.Map{"courseId": body.CourseID})
	})
}
