package content

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/inkdrift/inkdrift/internal/models"
	"github.com/inkdrift/inkdrift/internal/provider"
)

// PromptContext is what the orchestrator folds into a synthesized prompt
// when the caller supplies none.
type PromptContext struct {
	RecentSummaries []string
	Categories      []string
}

// Resolver answers the orchestrator's questions about existing site content.
type Resolver struct {
	db *gorm.DB
}

// NewResolver builds a resolver over the shared database handle.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// PromptContext gathers recent post summaries and the category list.
func (r *Resolver) PromptContext(ctx context.Context) (PromptContext, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Select("summary", "title").
		Where("status = ?", models.PostStatusPublished).
		Order("created_at DESC").
		Limit(10).
		Find(&posts).Error
	if err != nil {
		return PromptContext{}, fmt.Errorf("failed to load recent posts: %w", err)
	}

	pc := PromptContext{}
	for _, p := range posts {
		if p.Summary != "" {
			pc.RecentSummaries = append(pc.RecentSummaries, p.Summary)
		} else if p.Title != "" {
			pc.RecentSummaries = append(pc.RecentSummaries, p.Title)
		}
	}

	err = r.db.WithContext(ctx).Model(&models.Post{}).
		Distinct("category").
		Where("category <> ''").
		Pluck("category", &pc.Categories).Error
	if err != nil {
		return PromptContext{}, fmt.Errorf("failed to load categories: %w", err)
	}

	return pc, nil
}

// LinkCandidates returns existing published posts as internal-link targets.
func (r *Resolver) LinkCandidates(ctx context.Context) []provider.LinkSuggestion {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Select("title", "slug", "summary").
		Where("status = ?", models.PostStatusPublished).
		Order("created_at DESC").
		Limit(30).
		Find(&posts).Error
	if err != nil {
		return nil
	}

	out := make([]provider.LinkSuggestion, 0, len(posts))
	for _, p := range posts {
		out = append(out, provider.LinkSuggestion{
			URL:   "/" + p.Slug,
			Title: p.Title,
		})
	}
	return out
}

// PrimaryLinkHints returns the site's category names as keyword hints for
// link anchoring.
func (r *Resolver) PrimaryLinkHints(ctx context.Context) []string {
	var categories []string
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Distinct("category").
		Where("category <> ''").
		Pluck("category", &categories).Error
	if err != nil {
		return nil
	}
	return categories
}
