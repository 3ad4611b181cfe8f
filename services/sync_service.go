package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"learning-portal-system/models"

	"go.uber.org/zap"
)

// SyncService mediates between the local progress store and the hosted
// backend. Local state is always authoritative for the current session; the
// remote side is a best-effort mirror. The service tolerates a missing or
// unreachable backend by doing nothing.
type SyncService struct {
	client   *SupabaseClient
	progress *ProgressService
	log      *zap.SugaredLogger

	mu      sync.Mutex
	session *Session
}

func NewSyncService(client *SupabaseClient, progress *ProgressService, log *zap.SugaredLogger) *SyncService {
	return &SyncService{
		client:   client,
		progress: progress,
		log:      log,
	}
}

// Enabled reports whether a backend is configured.
func (s *SyncService) Enabled() bool {
	return s.client.Enabled()
}

// Session returns the active session, or nil when signed out.
func (s *SyncService) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

// SignIn authenticates and then runs the strict seeding sequence: wipe local
// progress (persisted), pull remote completions, merge them in, then push any
// residual local completions. The wipe completes before the pull begins, so a
// stale session's data can never leak into the new account.
func (s *SyncService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	session, err := s.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.progress.ClearAll()

	// Completion events queued before the wipe belong to the previous
	// identity; once the session is installed the push worker would mirror
	// them into the new account.
drain:
	for {
		select {
		case ev := <-s.progress.Events():
			s.log.Debugw("discarding stale completion event", "lesson", ev.Key())
		default:
			break drain
		}
	}

	// Residual completions are whatever still exists locally after the wipe,
	// normally nothing. Captured before the seed so remote rows are not pushed
	// straight back.
	residual := s.progress.GetAllProgress()

	rows, err := s.client.FetchCompletions(ctx, session)
	if err != nil {
		s.log.Warnw("failed to pull remote completions, continuing with empty local state", "error", err)
	} else {
		s.progress.SeedCompletions(rows)
	}

	s.pushResidual(ctx, session, residual)

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.log.Infow("signed in", "user", session.UserID, "remote_completions", len(rows))
	return session, nil
}

// SignOut drops the session and wipes local progress so the next account
// starts clean.
func (s *SyncService) SignOut() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	s.progress.ClearAll()
	s.log.Infow("signed out")
}

// pushResidual mirrors local completions that survived the sign-in wipe. In
// practice the map is empty; it exists to catch completions recorded between
// the clear and the seed.
func (s *SyncService) pushResidual(ctx context.Context, session *Session, local map[string]bool) {
	seeded := 0
	for flag := range local {
		key := strings.TrimPrefix(flag, LegacyCompletedPrefix)
		parts := strings.SplitN(key, ".", 4)
		if len(parts) != 4 {
			continue
		}
		rec := s.progress.GetLessonProgress(parts[0], parts[1], parts[2], parts[3])
		row := CompletionRow{
			CourseID:    parts[0],
			PathID:      parts[1],
			ModuleID:    parts[2],
			LessonID:    parts[3],
			CompletedAt: time.UnixMilli(rec.CompletedAt),
		}
		if err := s.client.UpsertCompletion(ctx, session, row); err != nil {
			s.log.Warnw("failed to push local completion", "lesson", key, "error", err)
			continue
		}
		seeded++
	}
	if seeded > 0 {
		s.log.Infow("pushed local completions to backend", "count", seeded)
	}
}

// PushCompletion mirrors one completion event, fire-and-forget: failures are
// logged and swallowed, never retried, and never block local state. Events
// arriving while signed out are discarded.
func (s *SyncService) PushCompletion(ctx context.Context, ev models.CompletionEvent) {
	session := s.Session()
	if session == nil {
		s.log.Debugw("not authenticated, completion stored locally only", "lesson", ev.Key())
		return
	}

	row := CompletionRow{
		CourseID:    ev.CourseID,
		PathID:      ev.PathID,
		ModuleID:    ev.ModuleID,
		LessonID:    ev.LessonID,
		CompletedAt: time.UnixMilli(ev.CompletedAt),
	}
	if err := s.client.UpsertCompletion(ctx, session, row); err != nil {
		s.log.Warnw("failed to mirror completion", "lesson", ev.Key(), "error", err)
		return
	}

	if err := s.client.TrackAchievement(ctx, session, "lesson_completed", map[string]string{
		"courseId": ev.CourseID,
		"pathId":   ev.PathID,
		"moduleId": ev.ModuleID,
		"lessonId": ev.LessonID,
	}); err != nil {
		s.log.Warnw("failed to track achievement", "lesson", ev.Key(), "error", err)
	}
}
