package models

import "gorm.io/gorm"

// Usage record kinds, one per provider call type.
const (
	UsageKindArticle = "article"
	UsageKindImage   = "image"
	UsageKindComment = "comment"
)

// UsageRecord is one append-only accounting row per provider call.
type UsageRecord struct {
	gorm.Model
	Kind             string  `gorm:"not null;index"`
	Provider         string  `gorm:"not null;index"`
	ModelName        string  `gorm:"not null"`
	PromptTokens     int     `gorm:"not null;default:0"`
	CompletionTokens int     `gorm:"not null;default:0"`
	CostUSD          float64 `gorm:"not null;default:0"`
}
