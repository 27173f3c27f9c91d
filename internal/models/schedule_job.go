package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScheduleJob status constants. Transitions are monotonic along
// draft → scheduled → running → completed|failed; failed may re-enter
// running, completed is terminal. Only the jobs package mutates Status.
const (
	JobStatusDraft     = "draft"
	JobStatusScheduled = "scheduled"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// IsValidJobStatus returns true if s is a known ScheduleJob status.
func IsValidJobStatus(s string) bool {
	switch s {
	case JobStatusDraft, JobStatusScheduled, JobStatusRunning,
		JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// ScheduleJob is a persisted unit of scheduled generation work.
type ScheduleJob struct {
	gorm.Model
	Status       string `gorm:"not null;default:'draft';index"`
	Title        string
	PostType     string `gorm:"not null;default:'article'"`
	PostStatus   string `gorm:"not null;default:'published'"`
	PublishAt    *time.Time
	AuthorID     uint   `gorm:"index"`
	Prompt       string `gorm:"type:text"`
	SystemPrompt string `gorm:"type:text"`
	ModelName    string
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	ResultPostID *uint
	LastError    string `gorm:"type:text"`
	RanAt        *time.Time
}
