package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CommentPlanEntry statuses
const (
	PlanEntryPending = "pending"
	PlanEntryDone    = "done"
)

// CommentPlanEntry is one planned synthetic comment. Entries flip to done
// one at a time as the drip scheduler processes them.
type CommentPlanEntry struct {
	DueAt     time.Time `json:"due_at"`
	Status    string    `json:"status"`
	CommentID *uint     `json:"comment_id,omitempty"`
}

// CommentPlan holds the drip plan for one post. Plans are created in bulk
// when a post is generated and mutated in place afterwards; they are never
// deleted, a drained plan is the historical record of the drip.
type CommentPlan struct {
	gorm.Model
	PostID  uint           `gorm:"not null;uniqueIndex"`
	Entries datatypes.JSON `gorm:"type:jsonb"`
	// Pending mirrors the pending-entry count inside Entries so the poll
	// query can skip drained plans without decoding JSON.
	Pending int `gorm:"not null;default:0;index"`
}

// DecodeEntries unmarshals the entries column.
func (p *CommentPlan) DecodeEntries() ([]CommentPlanEntry, error) {
	if len(p.Entries) == 0 {
		return nil, nil
	}
	var entries []CommentPlanEntry
	if err := json.Unmarshal(p.Entries, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// EncodeEntries marshals entries back into the entries column.
func (p *CommentPlan) EncodeEntries(entries []CommentPlanEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	p.Entries = datatypes.JSON(raw)
	return nil
}

// PendingCount returns how many entries are still pending.
func (p *CommentPlan) PendingCount() int {
	entries, err := p.DecodeEntries()
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Status == PlanEntryPending {
			n++
		}
	}
	return n
}
