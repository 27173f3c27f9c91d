// Package jobs owns the schedule-job table and its state machine. All
// status writes go through this package; claiming is an optimistic
// compare-and-swap so overlapping poll cycles never run the same job twice.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/inkdrift/inkdrift/internal/models"
	"github.com/inkdrift/inkdrift/internal/orchestrator"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = fmt.Errorf("job not found")

// failedRunMessage is the fixed operator-facing diagnostic stored when a
// claimed job produces no post.
const failedRunMessage = "generation produced no result; check provider configuration and logs"

// Runner executes a claimed job. Satisfied by *orchestrator.Orchestrator.
type Runner interface {
	Generate(ctx context.Context, overrides orchestrator.Overrides) (uint, bool)
}

// Store is the schedule-job CRUD and lifecycle surface.
type Store struct {
	db     *gorm.DB
	runner Runner
	logger *slog.Logger
}

// NewStore builds a job store.
func NewStore(db *gorm.DB, runner Runner, logger *slog.Logger) *Store {
	return &Store{db: db, runner: runner, logger: logger.With("component", "jobs")}
}

// Create inserts a job from a validated payload. Missing fields fall back
// to documented defaults; a creation payload without a status becomes draft.
func (s *Store) Create(ctx context.Context, payload Payload, loc *time.Location) (*models.ScheduleJob, error) {
	job := models.ScheduleJob{
		Status:     models.JobStatusDraft,
		PostType:   models.PostTypeArticle,
		PostStatus: models.PostStatusPublished,
	}
	payload.apply(&job, loc, s.logger)

	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return &job, nil
}

// Update applies a partial payload to an existing job. Unknown fields were
// already discarded at decode time; invalid enum values are dropped with a
// log line rather than rejecting the whole payload. Only the payload-touched
// columns are written, so a claim that flipped the row to running between the
// read and the write survives.
func (s *Store) Update(ctx context.Context, id uint, payload Payload, loc *time.Location) (*models.ScheduleJob, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	cols := payload.apply(job, loc, s.logger)
	if len(cols) == 0 {
		return job, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.ScheduleJob{}).
		Where("id = ?", id).Updates(cols).Error; err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	return job, nil
}

// Get loads one job.
func (s *Store) Get(ctx context.Context, id uint) (*models.ScheduleJob, error) {
	var job models.ScheduleJob
	if err := s.db.WithContext(ctx).First(&job, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return &job, nil
}

// ListFilter narrows List output.
type ListFilter struct {
	Status   string
	AuthorID uint
	Search   string
	Page     int
	PageSize int
}

// ListResult is one page of jobs plus the unpaged total.
type ListResult struct {
	Items []models.ScheduleJob `json:"items"`
	Total int64                `json:"total"`
}

// List returns jobs matching the filter, newest first, paginated.
func (s *Store) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	q := s.db.WithContext(ctx).Model(&models.ScheduleJob{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AuthorID != 0 {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("title ILIKE ? OR prompt ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	var items []models.ScheduleJob
	err := q.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return &ListResult{Items: items, Total: total}, nil
}

// RunDue claims and executes up to limit scheduled jobs whose publish time
// has passed, ordered by due time. Returns how many jobs this call actually
// ran (claimed elsewhere does not count).
func (s *Store) RunDue(ctx context.Context, limit int) int {
	var due []models.ScheduleJob
	err := s.db.WithContext(ctx).
		Where("status = ? AND publish_at IS NOT NULL AND publish_at <= ?", models.JobStatusScheduled, time.Now().UTC()).
		Order("publish_at ASC").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		s.logger.Error("failed to select due jobs", "error", err.Error())
		return 0
	}

	processed := 0
	for i := range due {
		if s.claimAndRun(ctx, &due[i], models.JobStatusScheduled) {
			processed++
		}
	}
	return processed
}

// RunNow claims and executes one job regardless of its due time, as long as
// it is in a runnable state.
func (s *Store) RunNow(ctx context.Context, id uint) bool {
	job, err := s.Get(ctx, id)
	if err != nil {
		s.logger.Warn("run-now on missing job", "job_id", id)
		return false
	}

	switch job.Status {
	case models.JobStatusDraft, models.JobStatusScheduled, models.JobStatusFailed:
		return s.claimAndRun(ctx, job, job.Status)
	default:
		s.logger.Warn("run-now on non-runnable job", "job_id", id, "status", job.Status)
		return false
	}
}

// claimAndRun performs the CAS claim and, if won, executes the job. The
// conditional update only succeeds if the persisted status still matches
// what we read at selection time; zero affected rows means another worker
// got there first and is not an error.
func (s *Store) claimAndRun(ctx context.Context, job *models.ScheduleJob, expectedStatus string) bool {
	res := s.db.WithContext(ctx).Model(&models.ScheduleJob{}).
		Where("id = ? AND status = ?", job.ID, expectedStatus).
		Update("status", models.JobStatusRunning)
	if res.Error != nil {
		s.logger.Error("claim update failed", "job_id", job.ID, "error", res.Error.Error())
		return false
	}
	if res.RowsAffected == 0 {
		s.logger.Debug("job already claimed elsewhere", "job_id", job.ID)
		return false
	}

	s.logger.Info("job claimed", "job_id", job.ID, "title", job.Title)

	postID, ok := s.runner.Generate(ctx, orchestrator.Overrides{
		Prompt:       job.Prompt,
		SystemPrompt: job.SystemPrompt,
		Model:        job.ModelName,
		Title:        job.Title,
		PostType:     job.PostType,
		PostStatus:   job.PostStatus,
		AuthorID:     job.AuthorID,
		PublishAt:    job.PublishAt,
		IgnoreDryRun: true, // scheduled jobs always materialize
	})

	now := time.Now().UTC()
	updates := map[string]interface{}{"ran_at": now}
	if ok {
		updates["status"] = models.JobStatusCompleted
		updates["result_post_id"] = postID
		updates["last_error"] = ""
	} else {
		updates["status"] = models.JobStatusFailed
		updates["last_error"] = failedRunMessage
	}

	if err := s.db.WithContext(ctx).Model(&models.ScheduleJob{}).
		Where("id = ?", job.ID).Updates(updates).Error; err != nil {
		s.logger.Error("failed to finalize job", "job_id", job.ID, "error", err.Error())
	}
	return true
}
