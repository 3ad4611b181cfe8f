package services

import (
	"errors"

	"learning-portal-system/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocalStore is the durable key-value store behind the progress tracker. Only
// the ProgressService writes to it. Read and write failures are logged and
// otherwise ignored: the in-memory state stays usable for the session and the
// next successful write repairs the gap.
type LocalStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewLocalStore(db *gorm.DB, log *zap.SugaredLogger) *LocalStore {
	return &LocalStore{db: db, log: log}
}

func (s *LocalStore) Get(key string) (string, bool) {
	var entry models.StoreEntry
	err := s.db.Where("key = ?", key).First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warnw("local store read failed", "key", key, "error", err)
		}
		return "", false
	}
	return entry.Value, true
}

func (s *LocalStore) Set(key, value string) {
	entry := models.StoreEntry{Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		s.log.Warnw("local store write failed", "key", key, "error", err)
	}
}

func (s *LocalStore) Delete(key string) {
	if err := s.db.Delete(&models.StoreEntry{}, "key = ?", key).Error; err != nil {
		s.log.Warnw("local store delete failed", "key", key, "error", err)
	}
}

func (s *LocalStore) DeleteByPrefix(prefix string) {
	if err := s.db.Delete(&models.StoreEntry{}, "key LIKE ?", prefix+"%").Error; err != nil {
		s.log.Warnw("local store prefix delete failed", "prefix", prefix, "error", err)
	}
}

func (s *LocalStore) KeysByPrefix(prefix string) []string {
	var keys []string
	err := s.db.Model(&models.StoreEntry{}).
		Where("key LIKE ?", prefix+"%").
		Order("key ASC").
		Pluck("key", &keys).Error
	if err != nil {
		s.log.Warnw("local store prefix scan failed", "prefix", prefix, "error", err)
		return nil
	}
	return keys
}
