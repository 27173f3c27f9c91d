package jobs

import (
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/inkdrift/inkdrift/internal/models"
)

// publishAtLayout is the wall-clock form the UI submits, interpreted in the
// site timezone and stored as UTC.
const publishAtLayout = "2006-01-02T15:04"

// Payload is the whitelisted set of mutable job fields. Pointer fields
// distinguish "absent" from "set to zero"; anything else in the request body
// is ignored by the JSON decoder.
type Payload struct {
	Status       *string         `json:"status"`
	Title        *string         `json:"title"`
	PostType     *string         `json:"post_type"`
	PostStatus   *string         `json:"post_status"`
	PublishAt    *string         `json:"publish_at"` // "2006-01-02T15:04" local, "" clears
	AuthorID     *uint           `json:"author_id"`
	Prompt       *string         `json:"prompt"`
	SystemPrompt *string         `json:"system_prompt"`
	ModelName    *string         `json:"model_name"`
	Metadata     json.RawMessage `json:"metadata"`
}

// apply copies valid payload fields onto the job and returns the touched
// columns. Invalid enum or time values are dropped with a log line; the rest
// of the payload still lands. Update writes only the returned columns so a
// partial payload never clobbers fields a concurrent claim just changed.
func (p Payload) apply(job *models.ScheduleJob, loc *time.Location, logger *slog.Logger) map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Status != nil {
		if models.IsValidJobStatus(*p.Status) {
			job.Status = *p.Status
			cols["status"] = *p.Status
		} else {
			logger.Warn("dropping invalid job status", "status", *p.Status)
		}
	}
	if p.Title != nil {
		job.Title = *p.Title
		cols["title"] = *p.Title
	}
	if p.PostType != nil {
		switch *p.PostType {
		case models.PostTypeArticle, models.PostTypePage:
			job.PostType = *p.PostType
			cols["post_type"] = *p.PostType
		default:
			logger.Warn("dropping invalid post type", "post_type", *p.PostType)
		}
	}
	if p.PostStatus != nil {
		switch *p.PostStatus {
		case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusPublished:
			job.PostStatus = *p.PostStatus
			cols["post_status"] = *p.PostStatus
		default:
			logger.Warn("dropping invalid post status", "post_status", *p.PostStatus)
		}
	}
	if p.PublishAt != nil {
		if *p.PublishAt == "" {
			job.PublishAt = nil
			cols["publish_at"] = nil
		} else if t, err := time.ParseInLocation(publishAtLayout, *p.PublishAt, loc); err == nil {
			utc := t.UTC()
			job.PublishAt = &utc
			cols["publish_at"] = utc
		} else {
			logger.Warn("dropping unparseable publish time", "publish_at", *p.PublishAt)
		}
	}
	if p.AuthorID != nil {
		job.AuthorID = *p.AuthorID
		cols["author_id"] = *p.AuthorID
	}
	if p.Prompt != nil {
		job.Prompt = *p.Prompt
		cols["prompt"] = *p.Prompt
	}
	if p.SystemPrompt != nil {
		job.SystemPrompt = *p.SystemPrompt
		cols["system_prompt"] = *p.SystemPrompt
	}
	if p.ModelName != nil {
		job.ModelName = *p.ModelName
		cols["model_name"] = *p.ModelName
	}
	if len(p.Metadata) > 0 && json.Valid(p.Metadata) {
		job.Metadata = datatypes.JSON(p.Metadata)
		cols["metadata"] = job.Metadata
	}
	return cols
}
