package models

import "time"

// StoreEntry is one row of the durable local key-value store.
type StoreEntry struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (StoreEntry) TableName() string {
	return "store_entries"
}
