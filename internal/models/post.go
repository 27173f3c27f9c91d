package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Post status constants
const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
)

// Post type constants
const (
	PostTypeArticle = "article"
	PostTypePage    = "page"
)

// Post is a generated content bundle. Rows are written once by the
// orchestrator and never mutated afterwards, except for the image
// attachment reference filled in by the render sidecar.
type Post struct {
	gorm.Model
	Title          string `gorm:"not null"`
	Slug           string `gorm:"uniqueIndex;not null"`
	Excerpt        string `gorm:"type:text"`
	Body           string `gorm:"type:text;not null"`
	Summary        string `gorm:"type:text"`
	ProvenanceHash string `gorm:"size:64;index"`
	Type           string `gorm:"not null;default:'article'"`
	Status         string `gorm:"not null;default:'published';index"`
	AuthorID       uint   `gorm:"index"`
	Category       string
	ImageID        *uint
	PublishedAt    *time.Time

	Comments []Comment `gorm:"constraint:OnDelete:CASCADE;"`
}

// ProvenanceHash derives the dedup fingerprint stored with a post. It exists
// so external tooling can spot accidental repeat generations; nothing in the
// engine branches on it.
func ProvenanceHash(title, summary string) string {
	sum := sha256.Sum256([]byte(title + "\n" + summary))
	return hex.EncodeToString(sum[:])
}
