package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"learning-portal-system/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	// ProgressStorageKey holds the serialized ProgressSnapshot blob.
	ProgressStorageKey = "learning_portal_progress"
	// CurrentCourseKey holds the last course the user navigated into.
	CurrentCourseKey = "learning_portal_current_course"
	// LegacyCompletedPrefix marks the boolean completion flags kept for older
	// completion checks. These are derived from the structured store, never
	// written independently.
	LegacyCompletedPrefix = "lesson-completed-"

	xpHistoryLimit       = 100
	completionEventDepth = 64
)

// XPWeights define relative award values for lesson gamification.
type XPWeights struct {
	LessonComplete    int
	StreakBonusPerDay int
	StreakBonusCap    int
	PerfectDay        int
}

var DefaultXPWeights = XPWeights{
	LessonComplete:    15,
	StreakBonusPerDay: 2,
	StreakBonusCap:    20,
	PerfectDay:        25,
}

// ProgressService is the single mutable source of truth for lesson progress,
// the XP ledger, and daily activity. Every mutation is followed by a
// best-effort write of the whole snapshot to the durable local store.
type ProgressService struct {
	store   *LocalStore
	log     *zap.SugaredLogger
	clock   clockwork.Clock
	weights XPWeights

	defaultCourse string

	mu      sync.Mutex
	lessons map[string]*models.ProgressRecord
	xp      models.XPLedger
	daily   map[string]int

	events chan models.CompletionEvent
}

func NewProgressService(store *LocalStore, log *zap.SugaredLogger, clock clockwork.Clock, weights XPWeights, defaultCourse string) *ProgressService {
	s := &ProgressService{
		store:         store,
		log:           log,
		clock:         clock,
		weights:       weights,
		defaultCourse: defaultCourse,
		lessons:       make(map[string]*models.ProgressRecord),
		daily:         make(map[string]int),
		events:        make(chan models.CompletionEvent, completionEventDepth),
	}
	s.load()
	return s
}

// Events is the completion notification stream consumed by the push worker.
func (s *ProgressService) Events() <-chan models.CompletionEvent {
	return s.events
}

func (s *ProgressService) load() {
	raw, ok := s.store.Get(ProgressStorageKey)
	if !ok {
		return
	}
	var snap models.ProgressSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Warnw("failed to load progress data, starting empty", "error", err)
		return
	}
	if snap.Lessons != nil {
		s.lessons = snap.Lessons
	}
	if snap.DailyActivity != nil {
		s.daily = snap.DailyActivity
	}
	s.xp = snap.XP
}

func (s *ProgressService) persistLocked() {
	raw, err := json.Marshal(models.ProgressSnapshot{
		Lessons:       s.lessons,
		XP:            s.xp,
		DailyActivity: s.daily,
	})
	if err != nil {
		s.log.Warnw("failed to serialize progress data", "error", err)
		return
	}
	s.store.Set(ProgressStorageKey, string(raw))
}

// Flush writes the current snapshot to the durable store. Used by the
// maintenance scheduler as a safety net; normal mutations persist themselves.
func (s *ProgressService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
}

// ========== CURRENT COURSE POINTER ==========

func (s *ProgressService) CurrentCourse() string {
	if id, ok := s.store.Get(CurrentCourseKey); ok && id != "" {
		return id
	}
	return s.defaultCourse
}

func (s *ProgressService) SetCurrentCourse(courseID string) {
	s.store.Set(CurrentCourseKey, courseID)
}

// ========== DAILY ACTIVITY & STREAK ==========

func (s *ProgressService) dayKey(offset int) string {
	return s.clock.Now().UTC().AddDate(0, 0, offset).Format("2006-01-02")
}

func (s *ProgressService) tickDailyLocked() {
	s.daily[s.dayKey(0)]++
}

// CurrentStreak counts consecutive days with activity, anchored at today. A
// quiet today does not break a chain built on prior days (the day is still
// pending), but the first quiet day before today does.
func (s *ProgressService) CurrentStreak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentStreakLocked()
}

func (s *ProgressService) currentStreakLocked() int {
	streak := 0
	if s.daily[s.dayKey(0)] > 0 {
		streak++
	}
	for offset := -1; s.daily[s.dayKey(offset)] > 0; offset-- {
		streak++
	}
	return streak
}

// TodayCount returns the number of activity ticks recorded today.
func (s *ProgressService) TodayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daily[s.dayKey(0)]
}

// WeeklyActivity returns the last seven days, oldest first.
func (s *ProgressService) WeeklyActivity() []models.DayActivity {
	s.mu.Lock()
	defer s.mu.Unlock()

	days := make([]models.DayActivity, 0, 7)
	for offset := -6; offset <= 0; offset++ {
		date := s.clock.Now().UTC().AddDate(0, 0, offset)
		key := date.Format("2006-01-02")
		days = append(days, models.DayActivity{
			Date:     key,
			Activity: s.daily[key],
			DayName:  date.Weekday().String()[:3],
		})
	}
	return days
}

// ========== XP ==========

func (s *ProgressService) TotalXP() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.xp.Total
}

// Ledger returns a copy of the XP ledger.
func (s *ProgressService) Ledger() models.XPLedger {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger := models.XPLedger{Total: s.xp.Total}
	ledger.History = append(ledger.History, s.xp.History...)
	return ledger
}

func (s *ProgressService) awardXPLocked(amount int, reason string) {
	s.xp.Total += amount
	s.xp.History = append(s.xp.History, models.XPEntry{
		Amount:    amount,
		Reason:    reason,
		Timestamp: s.clock.Now().UnixMilli(),
		Streak:    s.currentStreakLocked(),
	})
	if len(s.xp.History) > xpHistoryLimit {
		s.xp.History = s.xp.History[len(s.xp.History)-xpHistoryLimit:]
	}
	s.log.Debugw("XP awarded", "amount", amount, "reason", reason, "total", s.xp.Total)
}

// UserLevel maps the completed-lesson count onto the fixed five tiers.
func (s *ProgressService) UserLevel() models.UserLevel {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := 0
	for _, rec := range s.lessons {
		if rec.State == models.StateCompleted {
			completed++
		}
	}

	switch {
	case completed < 5:
		return models.UserLevel{Level: 1, Name: "Beginner", Progress: completed, NextLevel: 5}
	case completed < 15:
		return models.UserLevel{Level: 2, Name: "Student", Progress: completed - 5, NextLevel: 15}
	case completed < 30:
		return models.UserLevel{Level: 3, Name: "Learner", Progress: completed - 15, NextLevel: 30}
	case completed < 50:
		return models.UserLevel{Level: 4, Name: "Scholar", Progress: completed - 30, NextLevel: 50}
	default:
		return models.UserLevel{Level: 5, Name: "Expert", Progress: completed - 50}
	}
}

// ========== LESSON STATE TRANSITIONS ==========

// MarkViewed records a lesson view: creates a VIEWED record on first sight,
// bumps lastViewed and viewCount on repeats, and promotes NOT_STARTED to
// VIEWED. Always records one daily-activity tick.
func (s *ProgressService) MarkViewed(courseID, pathID, moduleID, lessonID string) models.ProgressRecord {
	key := models.LessonKey(courseID, pathID, moduleID, lessonID)
	now := s.clock.Now().UnixMilli()

	s.mu.Lock()
	rec, exists := s.lessons[key]
	if !exists {
		rec = &models.ProgressRecord{
			State:       models.StateViewed,
			FirstViewed: now,
			LastViewed:  now,
			ViewCount:   1,
		}
		s.lessons[key] = rec
	} else {
		rec.LastViewed = now
		rec.ViewCount++
		if rec.State == models.StateNotStarted {
			rec.State = models.StateViewed
		}
	}
	s.tickDailyLocked()
	s.persistLocked()
	out := *rec
	s.mu.Unlock()

	s.log.Debugw("lesson marked viewed", "lesson", key)
	return out
}

// MarkCompleted transitions a lesson into COMPLETED. The first transition
// awards base XP, a streak bonus when the streak exceeds one day, a perfect-day
// bonus when it lands the third activity of the day, and emits a completion
// event for the remote mirror. Repeat calls refresh timestamps only, with no
// XP and no event.
func (s *ProgressService) MarkCompleted(courseID, pathID, moduleID, lessonID string) models.ProgressRecord {
	key := models.LessonKey(courseID, pathID, moduleID, lessonID)
	now := s.clock.Now().UnixMilli()

	s.mu.Lock()
	rec, exists := s.lessons[key]
	wasCompleted := exists && rec.State == models.StateCompleted

	if !exists {
		rec = &models.ProgressRecord{
			State:       models.StateCompleted,
			FirstViewed: now,
			LastViewed:  now,
			CompletedAt: now,
			ViewCount:   1,
		}
		s.lessons[key] = rec
	} else {
		rec.State = models.StateCompleted
		rec.CompletedAt = now
		rec.LastViewed = now
	}

	s.tickDailyLocked()

	if !wasCompleted {
		s.awardXPLocked(s.weights.LessonComplete, "Lesson completed!")

		if streak := s.currentStreakLocked(); streak > 1 {
			bonus := streak * s.weights.StreakBonusPerDay
			if bonus > s.weights.StreakBonusCap {
				bonus = s.weights.StreakBonusCap
			}
			s.awardXPLocked(bonus, fmt.Sprintf("%d day streak bonus!", streak))
		}

		if s.daily[s.dayKey(0)] == 3 {
			s.awardXPLocked(s.weights.PerfectDay, "Perfect day bonus!")
		}
	}

	s.store.Set(LegacyCompletedPrefix+key, "true")
	s.persistLocked()
	out := *rec
	s.mu.Unlock()

	if !wasCompleted {
		s.emit(models.CompletionEvent{
			CourseID:    courseID,
			PathID:      pathID,
			ModuleID:    moduleID,
			LessonID:    lessonID,
			CompletedAt: now,
		})
	}

	s.log.Debugw("lesson marked completed", "lesson", key, "repeat", wasCompleted)
	return out
}

func (s *ProgressService) emit(ev models.CompletionEvent) {
	select {
	case s.events <- ev:
	default:
		s.log.Warnw("completion event queue full, dropping remote mirror event", "lesson", ev.Key())
	}
}

// ========== READS & AGGREGATION ==========

// GetLessonProgress returns the record for one lesson, or a NOT_STARTED stub.
func (s *ProgressService) GetLessonProgress(courseID, pathID, moduleID, lessonID string) models.ProgressRecord {
	key := models.LessonKey(courseID, pathID, moduleID, lessonID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.lessons[key]; ok {
		return *rec
	}
	return models.ProgressRecord{State: models.StateNotStarted}
}

// GetModuleProgress aggregates lesson states over one module's lessons.
func (s *ProgressService) GetModuleProgress(courseID, pathID, moduleID string, lessons []models.Lesson) models.ProgressSummary {
	if len(lessons) == 0 {
		return models.ProgressSummary{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	summary := models.ProgressSummary{Total: len(lessons)}
	for _, lesson := range lessons {
		s.countLocked(models.LessonKey(courseID, pathID, moduleID, lesson.ID), &summary)
	}
	summary.Percentage = percentage(summary.Completed, summary.Total)
	return summary
}

// GetCourseProgress aggregates lesson states across all paths of a course.
func (s *ProgressService) GetCourseProgress(courseID string, paths []models.Path) models.ProgressSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary models.ProgressSummary
	for _, path := range paths {
		for _, module := range path.Modules {
			summary.Total += len(module.Lessons)
			for _, lesson := range module.Lessons {
				s.countLocked(models.LessonKey(courseID, path.ID, module.ID, lesson.ID), &summary)
			}
		}
	}
	summary.Percentage = percentage(summary.Completed, summary.Total)
	return summary
}

func (s *ProgressService) countLocked(key string, summary *models.ProgressSummary) {
	rec, ok := s.lessons[key]
	if !ok {
		return
	}
	switch rec.State {
	case models.StateCompleted:
		summary.Completed++
		summary.Viewed++
	case models.StateViewed, models.StateInProgress:
		summary.Viewed++
	}
}

func percentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Records returns copies of every record whose key starts with the prefix.
// An empty prefix returns everything.
func (s *ProgressService) Records(prefix string) map[string]models.ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.ProgressRecord)
	for key, rec := range s.lessons {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			out[key] = *rec
		}
	}
	return out
}

// GetAllProgress returns the legacy-flag view of completed lessons, the shape
// the remote sync push consumes.
func (s *ProgressService) GetAllProgress() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool)
	for key, rec := range s.lessons {
		if rec.State == models.StateCompleted {
			out[LegacyCompletedPrefix+key] = true
		}
	}
	return out
}

// Snapshot returns a deep copy of the full in-memory state.
func (s *ProgressService) Snapshot() models.ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.ProgressSnapshot{
		Lessons:       make(map[string]*models.ProgressRecord, len(s.lessons)),
		XP:            models.XPLedger{Total: s.xp.Total},
		DailyActivity: make(map[string]int, len(s.daily)),
	}
	for key, rec := range s.lessons {
		copied := *rec
		snap.Lessons[key] = &copied
	}
	snap.XP.History = append(snap.XP.History, s.xp.History...)
	for key, count := range s.daily {
		snap.DailyActivity[key] = count
	}
	return snap
}

// ========== RESET & MERGE ==========

// ResetCourseProgress deletes every record keyed under the course prefix,
// leaving all other courses untouched.
func (s *ProgressService) ResetCourseProgress(courseID string) {
	prefix := courseID + "."

	s.mu.Lock()
	for key := range s.lessons {
		if strings.HasPrefix(key, prefix) {
			delete(s.lessons, key)
		}
	}
	s.persistLocked()
	s.mu.Unlock()

	s.store.DeleteByPrefix(LegacyCompletedPrefix + prefix)
	s.log.Infow("course progress reset", "course", courseID)
}

// ClearAll wipes every record, the XP ledger, the daily activity map, and the
// legacy flags, and persists the empty state before returning. Used on sign-in
// and sign-out to prevent cross-account contamination.
func (s *ProgressService) ClearAll() {
	s.mu.Lock()
	s.lessons = make(map[string]*models.ProgressRecord)
	s.xp = models.XPLedger{}
	s.daily = make(map[string]int)
	s.persistLocked()
	s.mu.Unlock()

	s.store.DeleteByPrefix(LegacyCompletedPrefix)
	s.log.Infow("all local progress cleared")
}

// SeedCompletions merges remote completion rows into the store. Remote is
// authoritative: an existing record is forced to COMPLETED with the remote
// timestamp. No XP is awarded for seeded completions.
func (s *ProgressService) SeedCompletions(rows []CompletionRow) {
	if len(rows) == 0 {
		return
	}

	s.mu.Lock()
	for _, row := range rows {
		key := models.LessonKey(row.CourseID, row.PathID, row.ModuleID, row.LessonID)
		ts := row.CompletedAt.UnixMilli()
		if rec, ok := s.lessons[key]; ok {
			rec.State = models.StateCompleted
			rec.CompletedAt = ts
		} else {
			s.lessons[key] = &models.ProgressRecord{
				State:       models.StateCompleted,
				FirstViewed: ts,
				LastViewed:  ts,
				CompletedAt: ts,
				ViewCount:   1,
			}
		}
		s.store.Set(LegacyCompletedPrefix+key, "true")
	}
	s.persistLocked()
	s.mu.Unlock()

	s.log.Infow("remote completions merged", "count", len(rows))
}
