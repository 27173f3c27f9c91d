package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/inkdrift/inkdrift/internal/config"
)

// armedMarkerKey is the redis key guarding the one-shot article trigger.
// While it exists, an article task is already enqueued for the future.
const armedMarkerKey = "inkdrift:article:armed"

// publishSlots are the human-plausible wall-clock times an autonomous
// article may land on. Minutes stay on the quarter hour.
var publishSlots = [...]struct{ Hour, Minute int }{
	{9, 0}, {10, 15}, {11, 30}, {13, 45}, {15, 0}, {16, 30}, {18, 15}, {20, 45},
}

// Trigger keeps exactly one future article generation armed. Recurring
// polls (drip, due jobs) live on the asynq scheduler instead; see
// StartScheduler.
type Trigger struct {
	cfg    *config.Config
	client *asynq.Client
	rdb    *redis.Client
	logger *slog.Logger
}

// NewTrigger builds the trigger scheduler. The redis client is the
// dedicated one from newSchedulerRedisClient, not asynq's internal pool.
func NewTrigger(cfg *config.Config, client *asynq.Client, rdb *redis.Client, logger *slog.Logger) *Trigger {
	return &Trigger{cfg: cfg, client: client, rdb: rdb, logger: logger.With("component", "trigger")}
}

// OpenTrigger builds a trigger with its own asynq and redis clients.
// The returned close function releases both.
func OpenTrigger(cfg *config.Config, logger *slog.Logger) (*Trigger, func(), error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := asynq.NewClient(redisOpt)

	rdb, err := newSchedulerRedisClient(cfg.RedisURL)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	trigger := NewTrigger(cfg, client, rdb, logger)
	return trigger, func() {
		client.Close()
		rdb.Close()
	}, nil
}

// EnsureArmed enqueues the next autonomous article generation if none is
// pending. Idempotent: the redis marker is set NX with an expiry matching
// the task's run time, so overlapping callers arm at most one task.
func (t *Trigger) EnsureArmed(ctx context.Context) error {
	next := ComputeNextArticleTime(time.Now(), t.cfg.IntervalHours, t.cfg.Location())

	armed, err := t.rdb.SetNX(ctx, armedMarkerKey, next.UTC().Format(time.RFC3339), time.Until(next)).Result()
	if err != nil {
		return fmt.Errorf("failed to set armed marker: %w", err)
	}
	if !armed {
		t.logger.Debug("article trigger already armed")
		return nil
	}

	task := asynq.NewTask(TaskGenerateArticle, nil,
		asynq.ProcessAt(next),
		asynq.MaxRetry(1),
		asynq.Retention(24*time.Hour),
	)
	if _, err := t.client.EnqueueContext(ctx, task); err != nil {
		// Roll the marker back so a later call can retry arming.
		t.rdb.Del(ctx, armedMarkerKey)
		return fmt.Errorf("failed to enqueue article task: %w", err)
	}

	t.logger.Info("article generation armed", "run_at", next)
	return nil
}

// Rearm arms the next occurrence after a generation fired. Clearing the
// marker first makes this a fresh arm rather than a no-op, so cycle drift
// never causes double-fires or dead stops.
func (t *Trigger) Rearm(ctx context.Context) error {
	if err := t.rdb.Del(ctx, armedMarkerKey).Err(); err != nil {
		return fmt.Errorf("failed to clear armed marker: %w", err)
	}
	return t.EnsureArmed(ctx)
}

// ComputeNextArticleTime draws a day offset from the configured interval
// (at least three days out, at most a week, biased a day either way) and
// snaps it to one of the publish slots in the site timezone. The result is
// always strictly in the future.
func ComputeNextArticleTime(now time.Time, intervalHours int, loc *time.Location) time.Time {
	days := (intervalHours + 23) / 24
	if days < 3 {
		days = 3
	}
	if days > 7 {
		days = 7
	}
	days += rand.Intn(3) - 1 // ±1 day

	slot := publishSlots[rand.Intn(len(publishSlots))]

	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), slot.Hour, slot.Minute, 0, 0, loc).
		AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// newSchedulerRedisClient opens the dedicated redis connection used for the
// armed-trigger marker, separate from asynq's internal pool.
func newSchedulerRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
