package models

// ProgressState is the per-lesson completion state machine.
type ProgressState string

const (
	StateNotStarted ProgressState = "not_started"
	StateViewed     ProgressState = "viewed"
	StateInProgress ProgressState = "in_progress"
	StateCompleted  ProgressState = "completed"
)

// ProgressRecord tracks one visited lesson. Timestamps are unix milliseconds.
type ProgressRecord struct {
	State       ProgressState `json:"state"`
	FirstViewed int64         `json:"firstViewed"`
	LastViewed  int64         `json:"lastViewed"`
	CompletedAt int64         `json:"completedAt,omitempty"`
	ViewCount   int           `json:"viewCount"`
}

// XPEntry is one award in the ledger history. Streak captures the streak length
// at the moment of the award.
type XPEntry struct {
	Amount    int    `json:"amount"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
	Streak    int    `json:"streak"`
}

// XPLedger holds the running XP total plus the last 100 awards (FIFO eviction).
type XPLedger struct {
	Total   int       `json:"total"`
	History []XPEntry `json:"history"`
}

// ProgressSnapshot is the serialized form of the whole progress store, the one
// JSON blob written to the durable key-value store.
type ProgressSnapshot struct {
	Lessons       map[string]*ProgressRecord `json:"lessons"`
	XP            XPLedger                   `json:"xp"`
	DailyActivity map[string]int             `json:"dailyActivity"`
}

// ProgressSummary aggregates lesson states over a module or a course.
type ProgressSummary struct {
	Percentage int `json:"percentage"`
	Completed  int `json:"completed"`
	Viewed     int `json:"viewed"`
	Total      int `json:"total"`
}

// UserLevel is the fixed five-tier step function over completed-lesson count.
// NextLevel is 0 at the top tier.
type UserLevel struct {
	Level     int    `json:"level"`
	Name      string `json:"name"`
	Progress  int    `json:"progress"`
	NextLevel int    `json:"nextLevel,omitempty"`
}

// DayActivity is one cell of the weekly activity strip.
type DayActivity struct {
	Date     string `json:"date"`
	Activity int    `json:"activity"`
	DayName  string `json:"dayName"`
}

// Suggestion is one dashboard recommendation. Type is continue, next, or
// featured; lower Priority sorts first.
type Suggestion struct {
	Type     string  `json:"type"`
	Course   *Course `json:"course"`
	Path     *Path   `json:"path"`
	Module   *Module `json:"module"`
	Lesson   *Lesson `json:"lesson"`
	Priority int     `json:"priority"`
}

// LessonRef points at one lesson position, used for continue/next suggestions.
type LessonRef struct {
	CourseID      string        `json:"courseId"`
	PathID        string        `json:"pathId"`
	ModuleID      string        `json:"moduleId"`
	LessonID      string        `json:"lessonId"`
	State         ProgressState `json:"state"`
	LastViewed    int64         `json:"lastViewed,omitempty"`
	IsFirstLesson bool          `json:"isFirstLesson,omitempty"`
}

// CompletionEvent is emitted on the first transition of a lesson into
// COMPLETED, for the remote mirror worker.
type CompletionEvent struct {
	CourseID    string `json:"courseId"`
	PathID      string `json:"pathId"`
	ModuleID    string `json:"moduleId"`
	LessonID    string `json:"lessonId"`
	CompletedAt int64  `json:"completedAt"`
}

// Key returns the composite lesson key of the completed lesson.
func (e CompletionEvent) Key() string {
	return LessonKey(e.CourseID, e.PathID, e.ModuleID, e.LessonID)
}
