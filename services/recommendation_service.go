package services

import (
	"sort"
	"strings"

	"learning-portal-system/models"
)

const maxSuggestions = 3

// RecommendationService derives dashboard suggestions and next-lesson hints
// from the progress store and the catalog. It never mutates either.
type RecommendationService struct {
	progress *ProgressService
}

func NewRecommendationService(progress *ProgressService) *RecommendationService {
	return &RecommendationService{progress: progress}
}

// Recommendations scans the catalog and returns up to three suggestions:
// lessons left in VIEWED state (continue, priority 1), the first unstarted
// lesson of each partially worked module (next, priority 2), and, only when
// fewer than three have been collected, the opening lesson of each learning
// path (featured, priority 3).
func (s *RecommendationService) Recommendations(courses []models.Course) []models.Suggestion {
	suggestions := make([]models.Suggestion, 0)

	for i := range courses {
		course := &courses[i]
		for j := range course.LearningPaths {
			path := &course.LearningPaths[j]
			for k := range path.Modules {
				module := &path.Modules[k]
				for l := range module.Lessons {
					lesson := &module.Lessons[l]
					rec := s.progress.GetLessonProgress(course.ID, path.ID, module.ID, lesson.ID)
					if rec.State == models.StateViewed {
						suggestions = append(suggestions, models.Suggestion{
							Type:     "continue",
							Course:   course,
							Path:     path,
							Module:   module,
							Lesson:   lesson,
							Priority: 1,
						})
					}
				}
			}
		}
	}

	for i := range courses {
		course := &courses[i]
		for j := range course.LearningPaths {
			path := &course.LearningPaths[j]
			for k := range path.Modules {
				module := &path.Modules[k]
				summary := s.progress.GetModuleProgress(course.ID, path.ID, module.ID, module.Lessons)
				if summary.Viewed == 0 || summary.Completed >= summary.Total {
					continue
				}
				for l := range module.Lessons {
					lesson := &module.Lessons[l]
					rec := s.progress.GetLessonProgress(course.ID, path.ID, module.ID, lesson.ID)
					if rec.State == models.StateNotStarted {
						suggestions = append(suggestions, models.Suggestion{
							Type:     "next",
							Course:   course,
							Path:     path,
							Module:   module,
							Lesson:   lesson,
							Priority: 2,
						})
						break // one per module
					}
				}
			}
		}
	}

	if len(suggestions) < maxSuggestions {
		for i := range courses {
			course := &courses[i]
			for j := range course.LearningPaths {
				path := &course.LearningPaths[j]
				if len(path.Modules) == 0 || len(path.Modules[0].Lessons) == 0 {
					continue
				}
				module := &path.Modules[0]
				lesson := &module.Lessons[0]
				rec := s.progress.GetLessonProgress(course.ID, path.ID, module.ID, lesson.ID)
				if rec.State == models.StateNotStarted {
					suggestions = append(suggestions, models.Suggestion{
						Type:     "featured",
						Course:   course,
						Path:     path,
						Module:   module,
						Lesson:   lesson,
						Priority: 3,
					})
				}
			}
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority < suggestions[j].Priority
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// SuggestedNextLesson picks the most recently viewed incomplete lesson of the
// course, falling back to the first unstarted lesson in catalog order.
func (s *RecommendationService) SuggestedNextLesson(courseID string, paths []models.Path) *models.LessonRef {
	if last := s.lastAccessedLesson(courseID); last != nil {
		return last
	}

	for _, path := range paths {
		for _, module := range path.Modules {
			for _, lesson := range module.Lessons {
				rec := s.progress.GetLessonProgress(courseID, path.ID, module.ID, lesson.ID)
				if rec.State == models.StateNotStarted {
					return &models.LessonRef{
						CourseID:      courseID,
						PathID:        path.ID,
						ModuleID:      module.ID,
						LessonID:      lesson.ID,
						State:         rec.State,
						IsFirstLesson: true,
					}
				}
			}
		}
	}
	return nil
}

func (s *RecommendationService) lastAccessedLesson(courseID string) *models.LessonRef {
	var (
		best       *models.LessonRef
		latestTime int64
	)

	for key, rec := range s.progress.Records(courseID + ".") {
		if rec.State == models.StateCompleted || rec.LastViewed <= latestTime {
			continue
		}
		parts := strings.Split(key, ".")
		if len(parts) != 4 {
			continue
		}
		latestTime = rec.LastViewed
		best = &models.LessonRef{
			CourseID:   parts[0],
			PathID:     parts[1],
			ModuleID:   parts[2],
			LessonID:   parts[3],
			State:      rec.State,
			LastViewed: rec.LastViewed,
		}
	}
	return best
}
