package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"learning-portal-system/models"

	"github.com/gosimple/unidecode"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

const defaultSearchLimit = 20

// SearchHit is one scored result.
type SearchHit struct {
	Type        string        `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Score       int           `json:"score"`
	Data        SearchHitData `json:"data"`
}

// SearchHitData carries the matched entity plus its ancestors, enough to build
// a route to the hit.
type SearchHitData struct {
	CourseID string         `json:"courseId"`
	PathID   string         `json:"pathId,omitempty"`
	ModuleID string         `json:"moduleId,omitempty"`
	LessonID string         `json:"lessonId,omitempty"`
	Course   *models.Course `json:"course,omitempty"`
	Path     *models.Path   `json:"path,omitempty"`
	Module   *models.Module `json:"module,omitempty"`
	Lesson   *models.Lesson `json:"lesson,omitempty"`
}

// SearchSuggestion is a lightweight autocomplete entry.
type SearchSuggestion struct {
	Text string        `json:"text"`
	Type string        `json:"type"`
	Data SearchHitData `json:"data"`
}

type searchRecord struct {
	recordType  string
	title       string
	description string
	keywords    []string
	data        SearchHitData

	// pre-folded forms, so queries only normalize once per search
	foldedTitle       string
	foldedDescription string
}

// SearchService holds the flat index built from the catalog. BuildIndex
// replaces the whole index; Search never mutates it.
type SearchService struct {
	mu      sync.RWMutex
	records []searchRecord
	indexed bool
	log     *zap.SugaredLogger
}

func NewSearchService(log *zap.SugaredLogger) *SearchService {
	return &SearchService{log: log}
}

// normalizeText transliterates to ASCII and case-folds, so "Café" and "cafe"
// index and query identically.
func normalizeText(s string) string {
	return cases.Fold().String(unidecode.Unidecode(s))
}

// lessonType derives the synthetic type keyword from a lesson title.
func lessonType(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "exercise"):
		return "Exercise"
	case strings.Contains(lower, "experiment"):
		return "Experiment"
	case strings.Contains(lower, "coding"):
		return "Coding"
	default:
		return "Lesson"
	}
}

// BuildIndex rebuilds the index from the catalog: one record per course, path,
// module, and lesson, keyed on its own title plus ancestor titles.
func (s *SearchService) BuildIndex(catalog *models.Catalog) {
	records := make([]searchRecord, 0)

	for i := range catalog.Courses {
		course := &catalog.Courses[i]
		records = append(records, newSearchRecord("course", course.Title, course.Description,
			[]string{course.Title},
			SearchHitData{CourseID: course.ID, Course: course}))

		for j := range course.LearningPaths {
			path := &course.LearningPaths[j]
			records = append(records, newSearchRecord("path", path.Title, path.Description,
				[]string{path.Title, course.Title},
				SearchHitData{CourseID: course.ID, PathID: path.ID, Course: course, Path: path}))

			for k := range path.Modules {
				module := &path.Modules[k]
				records = append(records, newSearchRecord("module", module.Title,
					fmt.Sprintf("%s module", path.Title),
					[]string{module.Title, path.Title, course.Title},
					SearchHitData{CourseID: course.ID, PathID: path.ID, ModuleID: module.ID,
						Course: course, Path: path, Module: module}))

				for l := range module.Lessons {
					lesson := &module.Lessons[l]
					kind := lessonType(lesson.Title)
					records = append(records, newSearchRecord("lesson", lesson.Title,
						fmt.Sprintf("%s in %s", kind, module.Title),
						[]string{lesson.Title, module.Title, path.Title, course.Title, kind},
						SearchHitData{CourseID: course.ID, PathID: path.ID, ModuleID: module.ID,
							LessonID: lesson.ID, Course: course, Path: path, Module: module, Lesson: lesson}))
				}
			}
		}
	}

	s.mu.Lock()
	s.records = records
	s.indexed = true
	s.mu.Unlock()

	s.log.Infow("search index built", "records", len(records))
}

func newSearchRecord(recordType, title, description string, keywords []string, data SearchHitData) searchRecord {
	folded := make([]string, len(keywords))
	for i, kw := range keywords {
		folded[i] = normalizeText(kw)
	}
	return searchRecord{
		recordType:        recordType,
		title:             title,
		description:       description,
		keywords:          folded,
		data:              data,
		foldedTitle:       normalizeText(title),
		foldedDescription: normalizeText(description),
	}
}

// Search scores every index record against the query and returns the top hits,
// highest score first, ties kept in index order. Queries shorter than two
// characters return nothing without touching the index.
func (s *SearchService) Search(query string, limit int) []SearchHit {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if utf8.RuneCountInString(query) < 2 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.indexed {
		s.log.Warnw("search requested before index was built")
		return nil
	}

	folded := normalizeText(query)
	terms := make([]string, 0)
	for _, term := range strings.Fields(folded) {
		if len(term) > 1 {
			terms = append(terms, term)
		}
	}

	hits := make([]SearchHit, 0)
	for _, rec := range s.records {
		score := scoreRecord(&rec, folded, terms)
		if score == 0 {
			continue
		}
		hits = append(hits, SearchHit{
			Type:        rec.recordType,
			Title:       rec.title,
			Description: rec.description,
			Score:       score,
			Data:        rec.data,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func scoreRecord(rec *searchRecord, foldedQuery string, terms []string) int {
	score := 0

	if strings.Contains(rec.foldedTitle, foldedQuery) {
		score += 100
		if strings.HasPrefix(rec.foldedTitle, foldedQuery) {
			score += 50
		}
	}

	if strings.Contains(rec.foldedDescription, foldedQuery) {
		score += 30
	}

	for _, term := range terms {
		for _, keyword := range rec.keywords {
			if strings.Contains(keyword, term) {
				score += 20
				if strings.HasPrefix(keyword, term) {
					score += 10
				}
			}
		}
	}

	if score > 0 {
		switch rec.recordType {
		case "lesson":
			score += 10
		case "module":
			score += 5
		case "path":
			score += 3
		case "course":
			score += 1
		}
	}
	return score
}

// Suggestions returns compact autocomplete entries for the query.
func (s *SearchService) Suggestions(query string, limit int) []SearchSuggestion {
	if limit <= 0 {
		limit = 5
	}
	hits := s.Search(query, limit)
	suggestions := make([]SearchSuggestion, 0, len(hits))
	for _, hit := range hits {
		suggestions = append(suggestions, SearchSuggestion{
			Text: hit.Title,
			Type: hit.Type,
			Data: hit.Data,
		})
	}
	return suggestions
}
