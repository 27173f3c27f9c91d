package drip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkdrift/inkdrift/internal/config"
	"github.com/inkdrift/inkdrift/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Post{}, &models.CommentPlan{}))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		CommentMin:           2,
		CommentMax:           6,
		DripFrequency:        config.DripNormal,
		CommentSimilarityPct: 88,
	}
}

type fakeTextGen struct {
	comments  []string
	nicknames []string
	calls     int
}

func (f *fakeTextGen) GenerateComment(ctx context.Context, articleContext string) string {
	if len(f.comments) == 0 {
		return ""
	}
	c := f.comments[f.calls%len(f.comments)]
	f.calls++
	return c
}

func (f *fakeTextGen) GenerateNickname(ctx context.Context, hint string) string {
	if len(f.nicknames) == 0 {
		return ""
	}
	return f.nicknames[0]
}

type fakeCommentWriter struct {
	inserted []models.Comment
	nextID   uint
}

func (f *fakeCommentWriter) InsertComment(ctx context.Context, comment *models.Comment) error {
	f.nextID++
	comment.ID = f.nextID
	f.inserted = append(f.inserted, *comment)
	return nil
}

func (f *fakeCommentWriter) ListRecentComments(ctx context.Context, postID uint, limit int) ([]models.Comment, error) {
	if len(f.inserted) <= limit {
		return f.inserted, nil
	}
	return f.inserted[len(f.inserted)-limit:], nil
}

func newTestScheduler(t *testing.T, db *gorm.DB, gen *fakeTextGen, writer *fakeCommentWriter) *Scheduler {
	t.Helper()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(testConfig(), db, gen, writer, l)
}

func TestPlanEntriesSpacing(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := planEntries(now, 4, 96*time.Hour)

	require.Len(t, entries, 4)
	assert.Equal(t, now.Add(30*time.Minute), entries[0].DueAt)

	for i, e := range entries {
		assert.Equal(t, models.PlanEntryPending, e.Status)
		assert.Nil(t, e.CommentID)
		if i > 0 {
			assert.Equal(t, 24*time.Hour, e.DueAt.Sub(entries[i-1].DueAt),
				"slots divide the window evenly")
		}
	}

	// The whole plan fits inside the window.
	last := entries[len(entries)-1].DueAt
	assert.True(t, last.Before(now.Add(30*time.Minute+96*time.Hour)))
}

func TestPlanForCountWithinBounds(t *testing.T) {
	db := newTestDB(t)
	s := newTestScheduler(t, db, &fakeTextGen{}, &fakeCommentWriter{})

	post := models.Post{Title: "On Tea", Status: models.PostStatusPublished}
	require.NoError(t, db.Create(&post).Error)

	require.NoError(t, s.PlanFor(context.Background(), post.ID, &post))

	var plan models.CommentPlan
	require.NoError(t, db.Where("post_id = ?", post.ID).First(&plan).Error)

	entries, err := plan.DecodeEntries()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
	assert.LessOrEqual(t, len(entries), 6)
	for _, e := range entries {
		assert.Equal(t, models.PlanEntryPending, e.Status)
	}
}

func TestPlanForExactCount(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	cfg.CommentMin = 3
	cfg.CommentMax = 3
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(cfg, db, &fakeTextGen{}, &fakeCommentWriter{}, l)

	post := models.Post{Title: "On Tea"}
	require.NoError(t, db.Create(&post).Error)

	before := time.Now().UTC()
	require.NoError(t, s.PlanFor(context.Background(), post.ID, &post))

	var plan models.CommentPlan
	require.NoError(t, db.Where("post_id = ?", post.ID).First(&plan).Error)
	entries, err := plan.DecodeEntries()
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, 3, plan.Pending)
	assert.False(t, entries[0].DueAt.Before(before.Add(30*time.Minute)),
		"first slot is never earlier than plan time plus half an hour")
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].DueAt.Sub(entries[i-1].DueAt), 30*time.Minute,
			"slots are spread well apart")
	}
}

func seedPlan(t *testing.T, db *gorm.DB, postID uint, dueEntries int, due time.Time) {
	t.Helper()
	entries := make([]models.CommentPlanEntry, dueEntries)
	for i := range entries {
		entries[i] = models.CommentPlanEntry{DueAt: due, Status: models.PlanEntryPending}
	}
	plan := models.CommentPlan{PostID: postID, Pending: dueEntries}
	require.NoError(t, plan.EncodeEntries(entries))
	require.NoError(t, db.Create(&plan).Error)
}

// seedDrainedPlan seeds a plan whose entries have all flipped to done.
func seedDrainedPlan(t *testing.T, db *gorm.DB, postID uint, createdAt time.Time) {
	t.Helper()
	id := postID
	entries := []models.CommentPlanEntry{
		{DueAt: createdAt.Add(time.Hour), Status: models.PlanEntryDone, CommentID: &id},
	}
	plan := models.CommentPlan{PostID: postID}
	require.NoError(t, plan.EncodeEntries(entries))
	require.NoError(t, db.Create(&plan).Error)
	require.NoError(t, db.Model(&plan).Update("created_at", createdAt).Error)
}

func TestProcessDueEmitsAndFlipsEntries(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeTextGen{
		comments: []string{
			"Loved the pacing of this one.",
			"The brewing section changed my mind completely.",
		},
		nicknames: []string{"PageTurner"},
	}
	writer := &fakeCommentWriter{}
	s := newTestScheduler(t, db, gen, writer)

	post := models.Post{Title: "On Tea", Excerpt: "Leaves and water."}
	require.NoError(t, db.Create(&post).Error)
	seedPlan(t, db, post.ID, 2, time.Now().UTC().Add(-time.Hour))

	emitted := s.ProcessDue(context.Background(), 3)
	assert.Equal(t, 2, emitted)
	require.Len(t, writer.inserted, 2)
	assert.Equal(t, "PageTurner", writer.inserted[0].AuthorName)
	assert.Equal(t, models.CommentApproved, writer.inserted[0].ApprovalState)
	assert.Contains(t, writer.inserted[0].AuthorEmail, "@mail.invalid")

	var plan models.CommentPlan
	require.NoError(t, db.Where("post_id = ?", post.ID).First(&plan).Error)
	entries, err := plan.DecodeEntries()
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, models.PlanEntryDone, e.Status)
		require.NotNil(t, e.CommentID)
	}
}

func TestProcessDueSkipsDrainedPlans(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeTextGen{
		comments:  []string{"The steeping chart alone was worth it."},
		nicknames: []string{"Teapot"},
	}
	writer := &fakeCommentWriter{}
	s := newTestScheduler(t, db, gen, writer)

	// A full batch of drained plans, all older than the live one. They must
	// not crowd the live plan out of the poll.
	old := time.Now().UTC().Add(-72 * time.Hour)
	for i := 0; i < plansPerRun; i++ {
		post := models.Post{Title: fmt.Sprintf("Archive %d", i), Slug: fmt.Sprintf("archive-%d", i)}
		require.NoError(t, db.Create(&post).Error)
		seedDrainedPlan(t, db, post.ID, old.Add(time.Duration(i)*time.Hour))
	}

	post := models.Post{Title: "On Tea", Slug: "on-tea"}
	require.NoError(t, db.Create(&post).Error)
	seedPlan(t, db, post.ID, 1, time.Now().UTC().Add(-time.Hour))

	emitted := s.ProcessDue(context.Background(), 3)
	assert.Equal(t, 1, emitted)
	require.Len(t, writer.inserted, 1)
	assert.Equal(t, post.ID, writer.inserted[0].PostID)

	var plan models.CommentPlan
	require.NoError(t, db.Where("post_id = ?", post.ID).First(&plan).Error)
	assert.Zero(t, plan.Pending, "counter follows the flipped entry")
}

func TestProcessDueDefersOnProviderMiss(t *testing.T) {
	db := newTestDB(t)
	writer := &fakeCommentWriter{}
	s := newTestScheduler(t, db, &fakeTextGen{}, writer)

	post := models.Post{Title: "On Tea"}
	require.NoError(t, db.Create(&post).Error)
	seedPlan(t, db, post.ID, 2, time.Now().UTC().Add(-time.Hour))

	emitted := s.ProcessDue(context.Background(), 3)
	assert.Zero(t, emitted)
	assert.Empty(t, writer.inserted)

	var plan models.CommentPlan
	require.NoError(t, db.Where("post_id = ?", post.ID).First(&plan).Error)
	entries, err := plan.DecodeEntries()
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, models.PlanEntryPending, e.Status, "missed entries stay pending")
	}
}

func TestProcessDueRespectsBudget(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeTextGen{
		comments: []string{
			"Completely different take, enjoyed it.",
			"The historical background was the best part.",
			"Bookmarking this for my next brew session.",
			"Sharp writing, sharp conclusions.",
			"Did not expect that ending at all.",
		},
		nicknames: []string{"NightOwl"},
	}
	writer := &fakeCommentWriter{}
	s := newTestScheduler(t, db, gen, writer)

	post := models.Post{Title: "On Tea"}
	require.NoError(t, db.Create(&post).Error)
	seedPlan(t, db, post.ID, 5, time.Now().UTC().Add(-time.Hour))

	emitted := s.ProcessDue(context.Background(), 3)
	assert.Equal(t, 3, emitted)
	assert.Len(t, writer.inserted, 3)
}

func TestProcessDueRejectsNearDuplicates(t *testing.T) {
	db := newTestDB(t)
	// Every candidate is the same text; after the first insert the rest are
	// exact duplicates and the entry defers.
	gen := &fakeTextGen{
		comments:  []string{"Great post, learned a lot!"},
		nicknames: []string{"Wanderer"},
	}
	writer := &fakeCommentWriter{}
	s := newTestScheduler(t, db, gen, writer)

	post := models.Post{Title: "On Tea"}
	require.NoError(t, db.Create(&post).Error)
	seedPlan(t, db, post.ID, 3, time.Now().UTC().Add(-time.Hour))

	emitted := s.ProcessDue(context.Background(), 5)
	assert.Equal(t, 1, emitted, "duplicates are never forced through")
	assert.Len(t, writer.inserted, 1)
}
