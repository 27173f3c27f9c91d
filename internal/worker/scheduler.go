package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkdrift/inkdrift/internal/config"
)

// StartScheduler creates and starts an Asynq Scheduler for the periodic
// maintenance tasks: draining due comment-plan entries and polling the
// job schedule. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: cfg.Location(),
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	dripTask := asynq.NewTask(
		TaskProcessDrip,
		nil,
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(6*time.Hour),
		asynq.Unique(30*time.Minute), // Prevent overlap if a run is slow
	)
	dripEntry, err := scheduler.Register("@every 1h", dripTask)
	if err != nil {
		return nil, fmt.Errorf("failed to register drip schedule: %w", err)
	}

	jobsTask := asynq.NewTask(
		TaskRunDueJobs,
		nil,
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(6*time.Hour),
		asynq.Unique(10*time.Minute),
	)
	jobsEntry, err := scheduler.Register("@every 15m", jobsTask)
	if err != nil {
		return nil, fmt.Errorf("failed to register job poll schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info(
		"Scheduler started",
		"timezone", cfg.SiteTimezone,
		"drip_entry", dripEntry,
		"jobs_entry", jobsEntry,
	)

	return func() { scheduler.Shutdown() }, nil
}
