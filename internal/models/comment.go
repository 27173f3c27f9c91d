package models

import "gorm.io/gorm"

// Comment approval states
const (
	CommentApproved = "approved"
	CommentHeld     = "held"
)

// Comment is a reader comment attached to a post. Drip-generated comments
// are indistinguishable from organic ones at this level on purpose.
type Comment struct {
	gorm.Model
	PostID        uint   `gorm:"not null;index"`
	AuthorName    string `gorm:"not null"`
	AuthorEmail   string // contact token, not a verified address
	Body          string `gorm:"type:text;not null"`
	ApprovalState string `gorm:"not null;default:'approved'"`
}
