package services

import (
	"path/filepath"
	"testing"
	"time"

	"learning-portal-system/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testAnchor is a Monday at noon UTC. Fake clocks start here so day and
// weekday math in the assertions stays readable.
var testAnchor = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.StoreEntry{}))
	return NewLocalStore(db, zap.NewNop().Sugar())
}

func newTestProgress(t *testing.T, clock clockwork.Clock) *ProgressService {
	t.Helper()
	return NewProgressService(newTestStore(t), zap.NewNop().Sugar(), clock, DefaultXPWeights, "computer-vision")
}

// drainEvents discards pending completion events so they do not leak
// between assertions.
func drainEvents(s *ProgressService) []models.CompletionEvent {
	var out []models.CompletionEvent
	for {
		select {
		case ev := <-s.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}
