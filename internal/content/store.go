// Package content implements the host platform's content and comment
// storage over gorm, plus the prompt-context resolver the orchestrator
// consults before generating.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/inkdrift/inkdrift/internal/models"
)

// Store persists posts, comments and attachments.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore builds a content store over the shared database handle.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger.With("component", "content")}
}

// Persist writes a fully-built post. The slug is derived from the title if
// unset and suffixed on collision; published posts get their publish stamp.
func (s *Store) Persist(ctx context.Context, post *models.Post) (uint, error) {
	if post.Slug == "" {
		post.Slug = Slugify(post.Title)
	}

	slug := post.Slug
	for attempt := 2; attempt <= 5; attempt++ {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Post{}).
			Where("slug = ?", post.Slug).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to check slug: %w", err)
		}
		if count == 0 {
			break
		}
		post.Slug = fmt.Sprintf("%s-%d", slug, attempt)
	}

	if post.Status == models.PostStatusPublished && post.PublishedAt == nil {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return 0, fmt.Errorf("failed to persist post: %w", err)
	}
	return post.ID, nil
}

// AttachImage stores an illustration binary and points the post at it.
func (s *Store) AttachImage(ctx context.Context, postID uint, data []byte) error {
	attachment := models.Attachment{PostID: postID, MimeType: "image/png", Data: data}
	if err := s.db.WithContext(ctx).Create(&attachment).Error; err != nil {
		return fmt.Errorf("failed to store attachment: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).Update("image_id", attachment.ID).Error; err != nil {
		return fmt.Errorf("failed to link attachment: %w", err)
	}
	return nil
}

// InsertComment writes one comment row.
func (s *Store) InsertComment(ctx context.Context, comment *models.Comment) error {
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// ListRecentComments returns the newest comments on a post, newest first.
func (s *Store) ListRecentComments(ctx context.Context, postID uint, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// Slugify lowercases the title and collapses runs of non-alphanumerics into
// single dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
