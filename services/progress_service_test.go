package services

import (
	"fmt"
	"testing"
	"time"

	"learning-portal-system/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMarkViewedCreatesAndPromotes(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	rec := svc.MarkViewed("cv", "basics", "m1", "l1")
	assert.Equal(t, models.StateViewed, rec.State)
	assert.Equal(t, 1, rec.ViewCount)
	assert.Equal(t, testAnchor.UnixMilli(), rec.FirstViewed)

	clock.Advance(time.Hour)
	rec = svc.MarkViewed("cv", "basics", "m1", "l1")
	assert.Equal(t, 2, rec.ViewCount)
	assert.Equal(t, testAnchor.UnixMilli(), rec.FirstViewed, "firstViewed must not move on repeat views")
	assert.Equal(t, clock.Now().UnixMilli(), rec.LastViewed)

	assert.Equal(t, 2, svc.TodayCount())
	assert.Zero(t, svc.TotalXP(), "views never award XP")
}

func TestMarkCompletedAwardsXPOnce(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	svc.MarkCompleted("cv", "basics", "m1", "l1")
	require.Equal(t, 15, svc.TotalXP())

	clock.Advance(time.Minute)
	rec := svc.MarkCompleted("cv", "basics", "m1", "l1")
	assert.Equal(t, 15, svc.TotalXP(), "repeat completion must not award XP again")
	assert.Equal(t, clock.Now().UnixMilli(), rec.CompletedAt, "repeat completion still refreshes the timestamp")

	events := drainEvents(svc)
	require.Len(t, events, 1, "only the first completion emits a mirror event")
	assert.Equal(t, "cv.basics.m1.l1", events[0].Key())
}

func TestMarkCompletedAfterViewKeepsFirstViewed(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	svc.MarkViewed("cv", "basics", "m1", "l1")
	clock.Advance(2 * time.Hour)
	rec := svc.MarkCompleted("cv", "basics", "m1", "l1")

	assert.Equal(t, models.StateCompleted, rec.State)
	assert.Equal(t, testAnchor.UnixMilli(), rec.FirstViewed)
	assert.Equal(t, clock.Now().UnixMilli(), rec.CompletedAt)
}

func TestStreakBrokenByQuietDay(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	// Activity on day 0 and day 1, quiet day 2, activity on day 3.
	for i := 0; i < 3; i++ {
		svc.MarkCompleted("cv", "p", "m", fmt.Sprintf("d0-%d", i))
	}
	clock.Advance(24 * time.Hour)
	for i := 0; i < 3; i++ {
		svc.MarkCompleted("cv", "p", "m", fmt.Sprintf("d1-%d", i))
	}
	clock.Advance(48 * time.Hour)
	for i := 0; i < 3; i++ {
		svc.MarkCompleted("cv", "p", "m", fmt.Sprintf("d3-%d", i))
	}

	assert.Equal(t, 1, svc.CurrentStreak(), "the quiet day before today breaks the chain")
}

func TestStreakQuietTodayIsPending(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	svc.MarkCompleted("cv", "p", "m", "d0")
	clock.Advance(24 * time.Hour)
	svc.MarkCompleted("cv", "p", "m", "d1")
	clock.Advance(24 * time.Hour)

	// Nothing recorded today yet: the two prior days still count.
	assert.Equal(t, 2, svc.CurrentStreak())

	svc.MarkCompleted("cv", "p", "m", "d2")
	assert.Equal(t, 3, svc.CurrentStreak())
}

func TestStreakBonusAppliedAndCapped(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	svc.MarkCompleted("cv", "p", "m", "d0")
	require.Equal(t, 15, svc.TotalXP(), "a one-day streak earns no bonus")

	clock.Advance(24 * time.Hour)
	svc.MarkCompleted("cv", "p", "m", "d1")
	// Base 15 plus a two-day streak bonus of 4.
	assert.Equal(t, 34, svc.TotalXP())

	// Walk the streak past the cap: at 12 days the raw bonus would be 24.
	for day := 2; day <= 12; day++ {
		clock.Advance(24 * time.Hour)
		svc.MarkCompleted("cv", "p", "m", fmt.Sprintf("d%d", day))
	}

	ledger := svc.Ledger()
	last := ledger.History[len(ledger.History)-1]
	assert.Equal(t, 20, last.Amount, "streak bonus is capped at 20")
	assert.Equal(t, 13, last.Streak)
}

func TestPerfectDayBonus(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	svc.MarkCompleted("cv", "p", "m", "l1")
	svc.MarkCompleted("cv", "p", "m", "l2")
	assert.Equal(t, 30, svc.TotalXP())

	svc.MarkCompleted("cv", "p", "m", "l3")
	assert.Equal(t, 70, svc.TotalXP(), "third completion of the day adds the perfect day bonus")

	// A fourth completion is past the perfect-day threshold.
	svc.MarkCompleted("cv", "p", "m", "l4")
	assert.Equal(t, 85, svc.TotalXP())
}

func TestWeeklyActivityShape(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	svc.MarkViewed("cv", "p", "m", "l1")
	clock.Advance(24 * time.Hour)
	svc.MarkCompleted("cv", "p", "m", "l1")

	week := svc.WeeklyActivity()
	require.Len(t, week, 7)
	// Anchor is a Monday; after one advance the clock sits on Tuesday.
	assert.Equal(t, "Tue", week[6].DayName)
	assert.Equal(t, 1, week[6].Activity)
	assert.Equal(t, "Mon", week[5].DayName)
	assert.Equal(t, 1, week[5].Activity)
	assert.Equal(t, 0, week[0].Activity)
	assert.Equal(t, "2025-03-05", week[0].Date)
}

func TestUserLevelTiers(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	level := svc.UserLevel()
	assert.Equal(t, 1, level.Level)
	assert.Equal(t, "Beginner", level.Name)

	for i := 0; i < 5; i++ {
		svc.MarkCompleted("cv", "p", "m", fmt.Sprintf("l%d", i))
	}
	level = svc.UserLevel()
	assert.Equal(t, 2, level.Level)
	assert.Equal(t, "Student", level.Name)
	assert.Equal(t, 0, level.Progress)
	assert.Equal(t, 15, level.NextLevel)

	for i := 5; i < 30; i++ {
		svc.MarkCompleted("cv", "p", "m", fmt.Sprintf("l%d", i))
	}
	level = svc.UserLevel()
	assert.Equal(t, 4, level.Level)
	assert.Equal(t, "Scholar", level.Name)
	assert.Equal(t, 0, level.Progress)
}

func TestModuleAndCourseAggregation(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	lessons := []models.Lesson{
		{ID: "l1", Title: "A", File: "a.html"},
		{ID: "l2", Title: "B", File: "b.html"},
		{ID: "l3", Title: "C", File: "c.html"},
		{ID: "l4", Title: "D", File: "d.html"},
	}

	svc.MarkCompleted("cv", "basics", "m1", "l1")
	svc.MarkCompleted("cv", "basics", "m1", "l2")
	svc.MarkViewed("cv", "basics", "m1", "l3")

	summary := svc.GetModuleProgress("cv", "basics", "m1", lessons)
	assert.Equal(t, models.ProgressSummary{Completed: 2, Viewed: 3, Total: 4, Percentage: 50}, summary)

	paths := []models.Path{{
		ID:      "basics",
		Title:   "Basics",
		Modules: []models.Module{{ID: "m1", Title: "M1", Lessons: lessons}},
	}}
	course := svc.GetCourseProgress("cv", paths)
	assert.Equal(t, 50, course.Percentage)

	assert.Equal(t, models.ProgressSummary{}, svc.GetModuleProgress("cv", "basics", "empty", nil))
}

func TestResetCourseProgressIsolation(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	store := newTestStore(t)
	svc := NewProgressService(store, zap.NewNop().Sugar(), clock, DefaultXPWeights, "cv")

	svc.MarkCompleted("cv", "p", "m", "l1")
	svc.MarkCompleted("robotics", "p", "m", "l1")
	xpBefore := svc.TotalXP()

	svc.ResetCourseProgress("cv")

	assert.Empty(t, svc.Records("cv."))
	assert.Len(t, svc.Records("robotics."), 1)
	assert.Equal(t, xpBefore, svc.TotalXP(), "reset keeps XP earned so far")

	_, ok := store.Get(LegacyCompletedPrefix + "cv.p.m.l1")
	assert.False(t, ok)
	_, ok = store.Get(LegacyCompletedPrefix + "robotics.p.m.l1")
	assert.True(t, ok)
}

func TestClearAllWipesEverything(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	store := newTestStore(t)
	svc := NewProgressService(store, zap.NewNop().Sugar(), clock, DefaultXPWeights, "cv")

	svc.MarkCompleted("cv", "p", "m", "l1")
	svc.ClearAll()

	assert.Empty(t, svc.Records(""))
	assert.Zero(t, svc.TotalXP())
	assert.Zero(t, svc.CurrentStreak())
	_, ok := store.Get(LegacyCompletedPrefix + "cv.p.m.l1")
	assert.False(t, ok)

	// The wiped state is durable.
	reloaded := NewProgressService(store, zap.NewNop().Sugar(), clock, DefaultXPWeights, "cv")
	assert.Empty(t, reloaded.Records(""))
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	store := newTestStore(t)
	svc := NewProgressService(store, zap.NewNop().Sugar(), clock, DefaultXPWeights, "cv")

	svc.MarkViewed("cv", "p", "m", "l1")
	svc.MarkCompleted("cv", "p", "m", "l2")
	clock.Advance(24 * time.Hour)
	svc.MarkCompleted("cv", "p", "m", "l3")

	reloaded := NewProgressService(store, zap.NewNop().Sugar(), clock, DefaultXPWeights, "cv")
	assert.Equal(t, svc.Snapshot(), reloaded.Snapshot())
	assert.Equal(t, svc.TotalXP(), reloaded.TotalXP())
	assert.Equal(t, 2, reloaded.CurrentStreak())
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	store := newTestStore(t)
	store.Set(ProgressStorageKey, "{this is not json")

	svc := NewProgressService(store, zap.NewNop().Sugar(), clock, DefaultXPWeights, "cv")
	assert.Empty(t, svc.Records(""))
	assert.Zero(t, svc.TotalXP())
}

func TestSeedCompletionsIsAuthoritativeAndXPFree(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	store := newTestStore(t)
	svc := NewProgressService(store, zap.NewNop().Sugar(), clock, DefaultXPWeights, "cv")

	svc.MarkViewed("cv", "p", "m", "l1")
	xpBefore := svc.TotalXP()

	remote := testAnchor.Add(-72 * time.Hour)
	svc.SeedCompletions([]CompletionRow{
		{CourseID: "cv", PathID: "p", ModuleID: "m", LessonID: "l1", CompletedAt: remote},
		{CourseID: "cv", PathID: "p", ModuleID: "m", LessonID: "l9", CompletedAt: remote},
	})

	rec := svc.GetLessonProgress("cv", "p", "m", "l1")
	assert.Equal(t, models.StateCompleted, rec.State)
	assert.Equal(t, remote.UnixMilli(), rec.CompletedAt)
	assert.Equal(t, testAnchor.UnixMilli(), rec.FirstViewed, "local view history is preserved")

	rec = svc.GetLessonProgress("cv", "p", "m", "l9")
	assert.Equal(t, models.StateCompleted, rec.State)
	assert.Equal(t, remote.UnixMilli(), rec.FirstViewed)

	assert.Equal(t, xpBefore, svc.TotalXP(), "seeded completions never award XP")
	assert.Empty(t, drainEvents(svc), "seeded completions never emit mirror events")

	_, ok := store.Get(LegacyCompletedPrefix + "cv.p.m.l9")
	assert.True(t, ok)
}

func TestGetAllProgressLegacyView(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	svc.MarkCompleted("cv", "p", "m", "l1")
	svc.MarkViewed("cv", "p", "m", "l2")

	all := svc.GetAllProgress()
	assert.Equal(t, map[string]bool{LegacyCompletedPrefix + "cv.p.m.l1": true}, all)
}

func TestCurrentCoursePointer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	assert.Equal(t, "computer-vision", svc.CurrentCourse(), "falls back to the configured default")
	svc.SetCurrentCourse("robotics")
	assert.Equal(t, "robotics", svc.CurrentCourse())
}

func TestXPHistoryTrimmed(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testAnchor)
	svc := newTestProgress(t, clock)

	for i := 0; i < 120; i++ {
		svc.MarkCompleted("cv", "p", "m", fmt.Sprintf("l%d", i))
		clock.Advance(time.Minute)
	}

	ledger := svc.Ledger()
	assert.LessOrEqual(t, len(ledger.History), 100)
	assert.Greater(t, ledger.Total, 120*15, "the running total is never trimmed")
}
