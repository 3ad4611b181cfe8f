package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"learning-portal-system/models"
	"learning-portal-system/utils"

	"go.uber.org/zap"
)

// LessonContext is a lesson together with its ancestors, the unit search hits
// and handlers work with.
type LessonContext struct {
	Course *models.Course `json:"course"`
	Path   *models.Path   `json:"path"`
	Module *models.Module `json:"module"`
	Lesson *models.Lesson `json:"lesson"`
}

// CatalogService owns the validated course tree. The tree is loaded once at
// startup and treated as immutable afterwards.
type CatalogService struct {
	catalog *models.Catalog
	log     *zap.SugaredLogger
}

func NewCatalogService(log *zap.SugaredLogger) *CatalogService {
	return &CatalogService{log: log}
}

// Load fetches the content document from the configured source (file, URL, or
// object-store bucket, in that order of preference) and validates it.
func (s *CatalogService) Load(ctx context.Context, cfg utils.Config) error {
	var (
		raw []byte
		err error
	)

	switch {
	case cfg.ContentFile != "":
		raw, err = os.ReadFile(cfg.ContentFile)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
	case cfg.ContentURL != "":
		raw, err = s.fetchURL(ctx, cfg.ContentURL)
		if err != nil {
			return err
		}
	case cfg.ContentBucket != "":
		raw, err = utils.DownloadObject(ctx, cfg.ContentBucket, cfg.ContentKey)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("no content source configured (set CONTENT_FILE, CONTENT_URL, or CONTENT_BUCKET)")
	}

	return s.LoadBytes(raw)
}

// LoadBytes validates a raw content document and installs it as the catalog.
func (s *CatalogService) LoadBytes(raw []byte) error {
	catalog, err := models.ValidateCatalog(raw, s.log)
	if err != nil {
		return err
	}
	s.catalog = catalog

	lessons := 0
	for _, course := range catalog.Courses {
		for _, path := range course.LearningPaths {
			for _, module := range path.Modules {
				lessons += len(module.Lessons)
			}
		}
	}
	s.log.Infow("catalog loaded", "courses", len(catalog.Courses), "lessons", lessons)
	return nil
}

func (s *CatalogService) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content fetch from %s returned %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *CatalogService) Catalog() *models.Catalog {
	return s.catalog
}

func (s *CatalogService) Courses() []models.Course {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Courses
}

// Course returns the course with the given id, or nil.
func (s *CatalogService) Course(id string) *models.Course {
	if s.catalog == nil {
		return nil
	}
	for i := range s.catalog.Courses {
		if s.catalog.Courses[i].ID == id {
			return &s.catalog.Courses[i]
		}
	}
	return nil
}

// FindLesson resolves a full lesson position to the catalog entities.
func (s *CatalogService) FindLesson(courseID, pathID, moduleID, lessonID string) (*LessonContext, bool) {
	course := s.Course(courseID)
	if course == nil {
		return nil, false
	}
	for i := range course.LearningPaths {
		path := &course.LearningPaths[i]
		if path.ID != pathID {
			continue
		}
		for j := range path.Modules {
			module := &path.Modules[j]
			if module.ID != moduleID {
				continue
			}
			for k := range module.Lessons {
				if module.Lessons[k].ID == lessonID {
					return &LessonContext{
						Course: course,
						Path:   path,
						Module: module,
						Lesson: &module.Lessons[k],
					}, true
				}
			}
			return nil, false
		}
		return nil, false
	}
	return nil, false
}

// FindModule resolves a module position to the catalog entities.
func (s *CatalogService) FindModule(courseID, pathID, moduleID string) (*models.Course, *models.Path, *models.Module, bool) {
	course := s.Course(courseID)
	if course == nil {
		return nil, nil, nil, false
	}
	for i := range course.LearningPaths {
		path := &course.LearningPaths[i]
		if path.ID != pathID {
			continue
		}
		for j := range path.Modules {
			if path.Modules[j].ID == moduleID {
				return course, path, &path.Modules[j], true
			}
		}
	}
	return nil, nil, nil, false
}
