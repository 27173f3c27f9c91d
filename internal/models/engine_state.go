package models

import (
	"time"

	"gorm.io/gorm"
)

// EngineState keys
const (
	StateLastPostID   = "last_post_id"
	StateLastPostTime = "last_post_time"
)

// EngineState is a small key/value side channel for observability markers
// (last successful generation, etc.). Last-writer-wins is acceptable here.
type EngineState struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// SetState upserts a state key.
func SetState(db *gorm.DB, key, value string) error {
	state := EngineState{Key: key, Value: value}
	return db.Where(EngineState{Key: key}).
		Assign(EngineState{Value: value}).
		FirstOrCreate(&state).Error
}

// GetState reads a state key, returning "" when unset.
func GetState(db *gorm.DB, key string) string {
	var state EngineState
	if err := db.Where("key = ?", key).First(&state).Error; err != nil {
		return ""
	}
	return state.Value
}

// FormatStateTime renders timestamps for state values consistently.
func FormatStateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
