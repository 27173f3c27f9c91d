package models

import "gorm.io/gorm"

// Attachment stores generated illustration binaries alongside posts. The
// engine only ever writes these; serving them is the host platform's job.
type Attachment struct {
	gorm.Model
	PostID   uint   `gorm:"not null;index"`
	MimeType string `gorm:"not null;default:'image/png'"`
	Data     []byte `gorm:"type:bytea"`
}
