package models

import (
	"encoding/json"
	"fmt"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Catalog is the immutable course tree loaded once at startup.
type Catalog struct {
	Courses []Course `json:"courses"`
}

type Course struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Icon          string `json:"icon,omitempty"`
	LearningPaths []Path `json:"learningPaths"`
}

type Path struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Folder      string   `json:"folder"`
	Modules     []Module `json:"modules"`
}

type Module struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Folder      string   `json:"folder"`
	Lessons     []Lesson `json:"lessons"`
}

type Lesson struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	File        string `json:"file"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// MalformedCatalogError is fatal: the top-level document cannot be used at all.
// Per-node problems never produce it; those nodes are dropped with a warning.
type MalformedCatalogError struct {
	Reason string
}

func (e *MalformedCatalogError) Error() string {
	return fmt.Sprintf("course content is critically malformed: %s", e.Reason)
}

// LessonKey builds the composite identifier used as the progress map key.
func LessonKey(courseID, pathID, moduleID, lessonID string) string {
	return fmt.Sprintf("%s.%s.%s.%s", courseID, pathID, moduleID, lessonID)
}

// ModuleKey builds the three-part module identifier.
func ModuleKey(courseID, pathID, moduleID string) string {
	return fmt.Sprintf("%s.%s.%s", courseID, pathID, moduleID)
}

type rawCourse struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Icon          string          `json:"icon"`
	LearningPaths json.RawMessage `json:"learningPaths"`
}

type rawPath struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Folder      string          `json:"folder"`
	Modules     json.RawMessage `json:"modules"`
}

type rawModule struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Folder      string          `json:"folder"`
	Lessons     json.RawMessage `json:"lessons"`
}

// ValidateCatalog parses and sanitizes a content document. It fails only when
// the top-level courses collection is missing or not an array; every other
// defect drops the offending node (and its subtree) with a warning and keeps
// going, so a single bad lesson never takes down the whole catalog.
func ValidateCatalog(raw []byte, log *zap.SugaredLogger) (*Catalog, error) {
	var envelope struct {
		Courses json.RawMessage `json:"courses"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &MalformedCatalogError{Reason: "document is not a JSON object"}
	}
	if len(envelope.Courses) == 0 {
		return nil, &MalformedCatalogError{Reason: "missing 'courses' collection"}
	}

	// An explicit null round-trips through the slice unmarshal without error,
	// so it has to be rejected before it.
	if string(envelope.Courses) == "null" {
		return nil, &MalformedCatalogError{Reason: "'courses' is not an array"}
	}

	var rawCourses []json.RawMessage
	if err := json.Unmarshal(envelope.Courses, &rawCourses); err != nil {
		return nil, &MalformedCatalogError{Reason: "'courses' is not an array"}
	}

	catalog := &Catalog{Courses: make([]Course, 0, len(rawCourses))}
	for _, rc := range rawCourses {
		course, ok := validateCourse(rc, log)
		if ok {
			catalog.Courses = append(catalog.Courses, course)
		}
	}
	return catalog, nil
}

func validateCourse(raw json.RawMessage, log *zap.SugaredLogger) (Course, bool) {
	var rc rawCourse
	if err := json.Unmarshal(raw, &rc); err != nil || rc.ID == "" || rc.Title == "" {
		log.Warnw("skipping malformed course (missing id or title)", "raw", string(raw))
		return Course{}, false
	}

	var rawPaths []json.RawMessage
	if err := json.Unmarshal(rc.LearningPaths, &rawPaths); err != nil {
		log.Warnw("skipping malformed course (learningPaths is not an array)", "course", rc.ID)
		return Course{}, false
	}

	course := Course{
		ID:            rc.ID,
		Title:         rc.Title,
		Description:   rc.Description,
		Icon:          rc.Icon,
		LearningPaths: make([]Path, 0, len(rawPaths)),
	}
	for _, rp := range rawPaths {
		path, ok := validatePath(rp, rc.ID, log)
		if ok {
			course.LearningPaths = append(course.LearningPaths, path)
		}
	}
	return course, true
}

func validatePath(raw json.RawMessage, courseID string, log *zap.SugaredLogger) (Path, bool) {
	var rp rawPath
	if err := json.Unmarshal(raw, &rp); err != nil || rp.ID == "" || rp.Title == "" {
		log.Warnw("skipping malformed learning path (missing id or title)", "course", courseID, "raw", string(raw))
		return Path{}, false
	}

	var rawModules []json.RawMessage
	if err := json.Unmarshal(rp.Modules, &rawModules); err != nil {
		log.Warnw("skipping malformed learning path (modules is not an array)", "course", courseID, "path", rp.ID)
		return Path{}, false
	}

	path := Path{
		ID:          rp.ID,
		Title:       rp.Title,
		Description: rp.Description,
		Icon:        rp.Icon,
		Folder:      rp.Folder,
		Modules:     make([]Module, 0, len(rawModules)),
	}
	if path.Folder == "" {
		path.Folder = slug.Make(rp.Title)
	}
	for _, rm := range rawModules {
		module, ok := validateModule(rm, courseID, rp.ID, log)
		if ok {
			path.Modules = append(path.Modules, module)
		}
	}
	return path, true
}

func validateModule(raw json.RawMessage, courseID, pathID string, log *zap.SugaredLogger) (Module, bool) {
	var rm rawModule
	if err := json.Unmarshal(raw, &rm); err != nil || rm.ID == "" || rm.Title == "" {
		log.Warnw("skipping malformed module (missing id or title)", "course", courseID, "path", pathID, "raw", string(raw))
		return Module{}, false
	}

	var rawLessons []json.RawMessage
	if err := json.Unmarshal(rm.Lessons, &rawLessons); err != nil {
		log.Warnw("skipping malformed module (lessons is not an array)", "course", courseID, "path", pathID, "module", rm.ID)
		return Module{}, false
	}

	module := Module{
		ID:          rm.ID,
		Title:       rm.Title,
		Description: rm.Description,
		Icon:        rm.Icon,
		Folder:      rm.Folder,
		Lessons:     make([]Lesson, 0, len(rawLessons)),
	}
	if module.Folder == "" {
		module.Folder = slug.Make(rm.Title)
	}
	for _, rl := range rawLessons {
		var lesson Lesson
		if err := json.Unmarshal(rl, &lesson); err != nil || lesson.ID == "" || lesson.Title == "" || lesson.File == "" {
			log.Warnw("skipping malformed lesson (missing id, title, or file)",
				"course", courseID, "path", pathID, "module", rm.ID, "raw", string(rl))
			continue
		}
		module.Lessons = append(module.Lessons, lesson)
	}
	return module, true
}
