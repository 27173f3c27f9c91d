package content

import (
	"gorm.io/gorm"

	"github.com/inkdrift/inkdrift/internal/models"
)

// StateWriter exposes the engine state table as a simple key setter.
type StateWriter struct {
	db *gorm.DB
}

// NewStateWriter builds a state writer over the shared database handle.
func NewStateWriter(db *gorm.DB) *StateWriter {
	return &StateWriter{db: db}
}

// Set upserts one state key.
func (s *StateWriter) Set(key, value string) error {
	return models.SetState(s.db, key, value)
}
