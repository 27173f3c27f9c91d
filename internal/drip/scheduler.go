// Package drip plans and emits a bounded, de-duplicated stream of synthetic
// comments for freshly published posts.
package drip

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkdrift/inkdrift/internal/config"
	"github.com/inkdrift/inkdrift/internal/models"
)

// minFirstDelay keeps the drip from commenting on a post the moment it
// appears; the first slot is never earlier than plan time + this.
const minFirstDelay = 30 * time.Minute

// recentCommentWindow is how many existing comments a candidate is checked
// against for near-duplicates.
const recentCommentWindow = 12

// maxAttempts bounds per-entry comment and nickname generation retries.
const maxAttempts = 3

// plansPerRun bounds how many plans one ProcessDue call scans.
const plansPerRun = 5

// TextGenerator is the slice of the provider gateway the drip uses.
type TextGenerator interface {
	GenerateComment(ctx context.Context, articleContext string) string
	GenerateNickname(ctx context.Context, hint string) string
}

// CommentWriter is the comment-store collaborator.
type CommentWriter interface {
	InsertComment(ctx context.Context, comment *models.Comment) error
	ListRecentComments(ctx context.Context, postID uint, limit int) ([]models.Comment, error)
}

// Scheduler owns CommentPlan rows and drains them over time.
type Scheduler struct {
	cfg      *config.Config
	db       *gorm.DB
	gen      TextGenerator
	comments CommentWriter
	logger   *slog.Logger
}

// NewScheduler builds a drip scheduler.
func NewScheduler(cfg *config.Config, db *gorm.DB, gen TextGenerator, comments CommentWriter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		db:       db,
		gen:      gen,
		comments: comments,
		logger:   logger.With("component", "drip"),
	}
}

// PlanFor creates the comment plan for a new post: a random count within
// the configured bounds, spread evenly across the frequency tier's window,
// starting half an hour out.
func (s *Scheduler) PlanFor(ctx context.Context, postID uint, post *models.Post) error {
	count := s.cfg.CommentMin
	if spread := s.cfg.CommentMax - s.cfg.CommentMin; spread > 0 {
		count += rand.Intn(spread + 1)
	}
	if count == 0 {
		return nil
	}

	entries := planEntries(time.Now().UTC(), count, s.cfg.DripWindow())

	plan := models.CommentPlan{PostID: postID, Pending: len(entries)}
	if err := plan.EncodeEntries(entries); err != nil {
		return fmt.Errorf("failed to encode plan entries: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return fmt.Errorf("failed to persist comment plan: %w", err)
	}

	s.logger.Info("comment plan created", "post_id", postID, "comments", count,
		"first_due", entries[0].DueAt, "last_due", entries[len(entries)-1].DueAt)
	return nil
}

// planEntries divides the window into count even slots starting at
// now+minFirstDelay. Pure so slot math is testable.
func planEntries(now time.Time, count int, window time.Duration) []models.CommentPlanEntry {
	start := now.Add(minFirstDelay)
	interval := window / time.Duration(count)

	entries := make([]models.CommentPlanEntry, count)
	for i := range entries {
		entries[i] = models.CommentPlanEntry{
			DueAt:  start.Add(time.Duration(i) * interval),
			Status: models.PlanEntryPending,
		}
	}
	return entries
}

// ProcessDue drains due plan entries, emitting at most maxPerRun comments
// across all plans. Entries whose candidates keep colliding stay pending
// for the next poll; a duplicate is never forced through.
func (s *Scheduler) ProcessDue(ctx context.Context, maxPerRun int) int {
	if maxPerRun <= 0 {
		maxPerRun = 3
	}

	// Drained plans keep their entries as the historical record; the
	// pending counter is what keeps them out of the batch.
	var plans []models.CommentPlan
	err := s.db.WithContext(ctx).
		Where("pending > 0").
		Order("created_at ASC").
		Limit(plansPerRun).
		Find(&plans).Error
	if err != nil {
		s.logger.Error("failed to load comment plans", "error", err.Error())
		return 0
	}

	now := time.Now().UTC()
	emitted := 0
	for i := range plans {
		if emitted >= maxPerRun {
			break
		}
		emitted += s.processPlan(ctx, &plans[i], now, maxPerRun-emitted)
	}
	return emitted
}

func (s *Scheduler) processPlan(ctx context.Context, plan *models.CommentPlan, now time.Time, budget int) int {
	entries, err := plan.DecodeEntries()
	if err != nil {
		s.logger.Error("corrupt comment plan", "plan_id", plan.ID, "error", err.Error())
		return 0
	}

	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, plan.PostID).Error; err != nil {
		s.logger.Warn("plan references missing post", "plan_id", plan.ID, "post_id", plan.PostID)
		return 0
	}

	emitted := 0
	for i := range entries {
		if emitted >= budget {
			break
		}
		if entries[i].Status != models.PlanEntryPending || entries[i].DueAt.After(now) {
			continue
		}

		commentID, ok := s.emitComment(ctx, &post)
		if !ok {
			continue // stays pending, retried next poll
		}

		entries[i].Status = models.PlanEntryDone
		entries[i].CommentID = &commentID
		emitted++

		if err := plan.EncodeEntries(entries); err != nil {
			s.logger.Error("failed to encode plan entries", "plan_id", plan.ID, "error", err.Error())
			break
		}
		plan.Pending = plan.PendingCount()
		if err := s.db.WithContext(ctx).Save(plan).Error; err != nil {
			s.logger.Error("failed to save plan progress", "plan_id", plan.ID, "error", err.Error())
			break
		}
	}
	return emitted
}

// emitComment generates one accepted comment plus author and stores it.
func (s *Scheduler) emitComment(ctx context.Context, post *models.Post) (uint, bool) {
	recent, err := s.comments.ListRecentComments(ctx, post.ID, recentCommentWindow)
	if err != nil {
		s.logger.Error("failed to list recent comments", "post_id", post.ID, "error", err.Error())
		return 0, false
	}

	existingBodies := make([]string, 0, len(recent))
	existingAuthors := make([]string, 0, len(recent))
	for _, c := range recent {
		existingBodies = append(existingBodies, c.Body)
		existingAuthors = append(existingAuthors, c.AuthorName)
	}

	articleContext := post.Title
	if post.Excerpt != "" {
		articleContext += "\n\n" + post.Excerpt
	}

	var body string
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := s.gen.GenerateComment(ctx, articleContext)
		if candidate == "" {
			return 0, false // provider miss, retry next poll
		}
		if !isNearDuplicate(candidate, existingBodies, s.cfg.CommentSimilarityPct) {
			body = candidate
			break
		}
		s.logger.Debug("near-duplicate comment rejected", "post_id", post.ID, "attempt", attempt+1)
	}
	if body == "" {
		s.logger.Info("dedup attempts exhausted, deferring entry", "post_id", post.ID)
		return 0, false
	}

	author := s.resolveNickname(ctx, existingAuthors)

	comment := models.Comment{
		PostID:        post.ID,
		AuthorName:    author,
		AuthorEmail:   commentContactToken(),
		Body:          body,
		ApprovalState: models.CommentApproved,
	}
	if err := s.comments.InsertComment(ctx, &comment); err != nil {
		s.logger.Error("failed to insert comment", "post_id", post.ID, "error", err.Error())
		return 0, false
	}

	s.logger.Info("drip comment emitted", "post_id", post.ID, "author", author)
	return comment.ID, true
}

// resolveNickname tries the provider a few times for a name unused among
// recent authors, then falls back locally.
func (s *Scheduler) resolveNickname(ctx context.Context, recentAuthors []string) string {
	hint := ""
	if len(recentAuthors) > 0 {
		hint = "Avoid these names: " + strings.Join(recentAuthors, ", ") + "."
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		nick := s.gen.GenerateNickname(ctx, hint)
		if nick != "" && !nicknameTaken(nick, recentAuthors) {
			return nick
		}
	}
	return fallbackNickname(recentAuthors)
}

// commentContactToken fabricates an opaque contact address; the host
// platform requires one but it is never mailed.
func commentContactToken() string {
	return uuid.NewString()[:8] + "@mail.invalid"
}
