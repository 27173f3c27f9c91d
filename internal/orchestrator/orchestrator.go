// Package orchestrator turns a generation request into a persisted post
// plus its side effects, exactly once per invocation.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/inkdrift/inkdrift/internal/config"
	"github.com/inkdrift/inkdrift/internal/content"
	"github.com/inkdrift/inkdrift/internal/models"
	"github.com/inkdrift/inkdrift/internal/provider"
)

// Generator is the slice of the provider gateway the orchestrator uses.
type Generator interface {
	GenerateArticle(ctx context.Context, prompt, systemPrompt, modelOverride string) *provider.ArticleDraft
	SuggestInternalLinks(ctx context.Context, articleBody string, candidates []provider.LinkSuggestion, keywordHints []string) []provider.LinkSuggestion
}

// ContentStore persists finished posts.
type ContentStore interface {
	Persist(ctx context.Context, post *models.Post) (uint, error)
}

// ContextResolver supplies prompt context and link candidates.
type ContextResolver interface {
	PromptContext(ctx context.Context) (content.PromptContext, error)
	LinkCandidates(ctx context.Context) []provider.LinkSuggestion
	PrimaryLinkHints(ctx context.Context) []string
}

// DripPlanner schedules the synthetic comment drip for a new post.
type DripPlanner interface {
	PlanFor(ctx context.Context, postID uint, post *models.Post) error
}

// ImageRequester hands a finished post to the illustration pipeline.
type ImageRequester interface {
	RequestImage(ctx context.Context, postID uint, title, style string) error
}

// StateStore records last-success observability markers.
type StateStore interface {
	Set(key, value string) error
}

// Overrides narrows or redirects a single Generate call. The zero value
// means fully autonomous generation.
type Overrides struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Context      *content.PromptContext

	Title      string
	PostType   string
	PostStatus string
	AuthorID   uint
	PublishAt  *time.Time

	// IgnoreDryRun forces persistence even in global preview mode.
	// Scheduled jobs always set it.
	IgnoreDryRun bool
}

// Orchestrator coordinates one generation cycle.
type Orchestrator struct {
	cfg      *config.Config
	gen      Generator
	store    ContentStore
	resolver ContextResolver
	drip     DripPlanner
	images   ImageRequester
	state    StateStore
	logger   *slog.Logger
}

// Options wires the orchestrator's collaborators. Images and State may be
// nil; the corresponding steps are skipped.
type Options struct {
	Config   *config.Config
	Gateway  Generator
	Store    ContentStore
	Resolver ContextResolver
	Drip     DripPlanner
	Images   ImageRequester
	State    StateStore
	Logger   *slog.Logger
}

// New builds an orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      opts.Config,
		gen:      opts.Gateway,
		store:    opts.Store,
		resolver: opts.Resolver,
		drip:     opts.Drip,
		images:   opts.Images,
		state:    opts.State,
		logger:   logger.With("component", "orchestrator"),
	}
}

// Generate runs one generation cycle. The zero return with ok=false means
// "no post this cycle" — provider misses and persistence failures are
// logged, never propagated.
func (o *Orchestrator) Generate(ctx context.Context, overrides Overrides) (uint, bool) {
	promptCtx := overrides.Context
	if promptCtx == nil {
		resolved, err := o.resolver.PromptContext(ctx)
		if err != nil {
			o.logger.Warn("prompt context unavailable, generating without it", "error", err.Error())
		}
		promptCtx = &resolved
	}

	prompt := overrides.Prompt
	if prompt == "" {
		prompt = o.synthesizePrompt(*promptCtx)
	}
	systemPrompt := overrides.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	draft := o.gen.GenerateArticle(ctx, prompt, systemPrompt, overrides.Model)
	if draft == nil || strings.TrimSpace(draft.Body) == "" {
		o.logger.Warn("generation unavailable this cycle")
		return 0, false
	}

	if o.cfg.PreviewMode && !overrides.IgnoreDryRun {
		o.logger.Info("preview mode: discarding generated article", "title", draft.Title)
		return 0, false
	}

	body := draft.Body
	if candidates := o.resolver.LinkCandidates(ctx); len(candidates) > 0 {
		hints := o.resolver.PrimaryLinkHints(ctx)
		if suggestions := o.gen.SuggestInternalLinks(ctx, body, candidates, hints); len(suggestions) > 0 {
			body = InjectLinks(body, suggestions)
		}
	}

	post := o.buildPost(draft, body, overrides)
	postID, err := o.store.Persist(ctx, post)
	if err != nil {
		o.logger.Error("failed to persist post", "title", post.Title, "error", err.Error())
		return 0, false
	}

	// Side effects past this point are fire-and-forget: the post exists.
	if o.cfg.ImageBuilds && o.images != nil {
		if err := o.images.RequestImage(ctx, postID, post.Title, o.cfg.ImageStyle); err != nil {
			o.logger.Warn("image build request failed", "post_id", postID, "error", err.Error())
		}
	}
	if o.drip != nil {
		if err := o.drip.PlanFor(ctx, postID, post); err != nil {
			o.logger.Warn("comment plan creation failed", "post_id", postID, "error", err.Error())
		}
	}
	o.markSuccess(postID)

	o.logger.Info("article generated", "post_id", postID, "title", post.Title, "slug", post.Slug)
	return postID, true
}

func (o *Orchestrator) buildPost(draft *provider.ArticleDraft, body string, overrides Overrides) *models.Post {
	title := strings.TrimSpace(draft.Title)
	if overrides.Title != "" {
		title = overrides.Title
	}
	if title == "" {
		title = deriveTitle(body)
	}

	excerpt := draft.Excerpt
	if excerpt == "" {
		excerpt = truncateWords(body, 40)
	}
	summary := draft.Summary
	if summary == "" {
		summary = excerpt
	}

	postType := overrides.PostType
	if postType == "" {
		postType = models.PostTypeArticle
	}
	postStatus := overrides.PostStatus
	if postStatus == "" {
		postStatus = models.PostStatusPublished
	}

	return &models.Post{
		Title:          title,
		Excerpt:        excerpt,
		Body:           body,
		Summary:        summary,
		ProvenanceHash: models.ProvenanceHash(title, summary),
		Type:           postType,
		Status:         postStatus,
		AuthorID:       overrides.AuthorID,
		PublishedAt:    overrides.PublishAt,
	}
}

func (o *Orchestrator) markSuccess(postID uint) {
	if o.state == nil {
		return
	}
	if err := o.state.Set(models.StateLastPostID, fmt.Sprintf("%d", postID)); err != nil {
		o.logger.Warn("failed to record last post id", "error", err.Error())
	}
	if err := o.state.Set(models.StateLastPostTime, models.FormatStateTime(time.Now())); err != nil {
		o.logger.Warn("failed to record last post time", "error", err.Error())
	}
}

// deriveTitle takes the first non-empty line, shedding markdown heading
// markers, when the provider returned an unstructured body.
func deriveTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "# "))
		if line != "" {
			return truncateWords(line, 12)
		}
	}
	return "Untitled"
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}
