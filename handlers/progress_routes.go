package handlers

import (
	"learning-portal-system/models"
	"learning-portal-system/services"

	"github.com/gofiber/fiber/v2"
)

// lessonEventBody accepts both historical message shapes emitted by embedded
// lesson content: {type: lesson-complete|lesson-viewed} and
// {status: completed|viewed}.
type lessonEventBody struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

func (b lessonEventBody) normalized() (string, bool) {
	switch {
	case b.Type == "lesson-complete" || b.Status == "completed":
		return "completed", true
	case b.Type == "lesson-viewed" || b.Status == "viewed":
		return "viewed", true
	default:
		return "", false
	}
}

func SetupProgressRoutes(app *fiber.App, catalog *services.CatalogService, progress *services.ProgressService, recommend *services.RecommendationService, policy services.AccessPolicy, autoCompleteOnView bool) {
	api := app.Group("/api")

	api.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"streak":         progress.CurrentStreak(),
			"todayCount":     progress.TodayCount(),
			"weeklyActivity": progress.WeeklyActivity(),
			"level":          progress.UserLevel(),
			"totalXP":        progress.TotalXP(),
		})
	})

	api.Get("/recommendations", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"recommendations": recommend.Recommendations(catalog.Courses()),
		})
	})

	api.Get("/progress/:courseId/:pathId/:moduleId", func(c *fiber.Ctx) error {
		course, path, module, ok := catalog.FindModule(c.Params("courseId"), c.Params("pathId"), c.Params("moduleId"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "module not found"})
		}

		lessons := make([]fiber.Map, 0, len(module.Lessons))
		priorCompleted := true
		for i := range module.Lessons {
			lesson := &module.Lessons[i]
			rec := progress.GetLessonProgress(course.ID, path.ID, module.ID, lesson.ID)
			lessons = append(lessons, fiber.Map{
				"lesson":     lesson,
				"state":      rec.State,
				"accessible": policy(i, priorCompleted),
			})
			priorCompleted = rec.State == models.StateCompleted
		}

		return c.JSON(fiber.Map{
			"summary": progress.GetModuleProgress(course.ID, path.ID, module.ID, module.Lessons),
			"lessons": lessons,
		})
	})

	api.Get("/progress/:courseId/:pathId/:moduleId/:lessonId", func(c *fiber.Ctx) error {
		lc, ok := catalog.FindLesson(c.Params("courseId"), c.Params("pathId"), c.Params("moduleId"), c.Params("lessonId"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "lesson not found"})
		}
		return c.JSON(fiber.Map{
			"lesson":   lc.Lesson,
			"progress": progress.GetLessonProgress(lc.Course.ID, lc.Path.ID, lc.Module.ID, lc.Lesson.ID),
		})
	})

	// The single entry point every completion/view signal path feeds into.
	// Deduplication happens inside the progress store, which awards XP only on
	// the first completion.
	api.Post("/lessons/:courseId/:pathId/:moduleId/:lessonId/event", func(c *fiber.Ctx) error {
		lc, ok := catalog.FindLesson(c.Params("courseId"), c.Params("pathId"), c.Params("moduleId"), c.Params("lessonId"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "lesson not found"})
		}

		var body lessonEventBody
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid event body"})
		}
		event, ok := body.normalized()
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unrecognized lesson event"})
		}

		var rec models.ProgressRecord
		switch event {
		case "completed":
			rec = progress.MarkCompleted(lc.Course.ID, lc.Path.ID, lc.Module.ID, lc.Lesson.ID)
		case "viewed":
			rec = progress.MarkViewed(lc.Course.ID, lc.Path.ID, lc.Module.ID, lc.Lesson.ID)
			if autoCompleteOnView {
				rec = progress.MarkCompleted(lc.Course.ID, lc.Path.ID, lc.Module.ID, lc.Lesson.ID)
			}
		}

		return c.JSON(fiber.Map{
			"event":    event,
			"progress": rec,
		})
	})
}
