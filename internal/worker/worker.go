package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkdrift/inkdrift/internal/config"
	"github.com/inkdrift/inkdrift/internal/orchestrator"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) { a.logger.Debug(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Info(args ...interface{})  { a.logger.Info(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Warn(args ...interface{})  { a.logger.Warn(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Error(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// JobRunner is the slice of the job store the worker polls.
type JobRunner interface {
	RunDue(ctx context.Context, limit int) int
}

// DripProcessor drains due comment-plan entries.
type DripProcessor interface {
	ProcessDue(ctx context.Context, maxPerRun int) int
}

// Generator runs one autonomous generation cycle.
type Generator interface {
	Generate(ctx context.Context, overrides orchestrator.Overrides) (uint, bool)
}

// Deps bundles everything the task handlers touch.
type Deps struct {
	Orchestrator Generator
	Jobs         JobRunner
	Drip         DripProcessor
	Trigger      *Trigger
}

// Start starts the asynq worker in non-blocking mode and returns a stop
// function so the caller can coordinate shutdown.
func Start(cfg *config.Config, deps Deps, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     5,
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
		Logger:          &asynqLoggerAdapter{logger: logger},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGenerateArticle, handleGenerateArticle(logger, deps))
	mux.HandleFunc(TaskProcessDrip, handleProcessDrip(logger, deps))
	mux.HandleFunc(TaskRunDueJobs, handleRunDueJobs(logger, deps))

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}

	logger.Info("Worker started", "concurrency", 5, "redis", cfg.RedisURL)
	return func() { srv.Shutdown() }, nil
}

// handleGenerateArticle runs one autonomous generation cycle and re-arms
// the next occurrence. A provider miss is not a task error: the cycle is
// simply skipped, and the re-arm still happens so cadence continues.
func handleGenerateArticle(logger *slog.Logger, deps Deps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		postID, ok := deps.Orchestrator.Generate(ctx, orchestrator.Overrides{})
		if ok {
			logger.Info("autonomous article generated", "post_id", postID)
		} else {
			logger.Warn("autonomous generation skipped this cycle")
		}

		if deps.Trigger != nil {
			if err := deps.Trigger.Rearm(ctx); err != nil {
				// Retryable: without a re-arm the cadence stops.
				return fmt.Errorf("failed to re-arm article trigger: %w", err)
			}
		}
		return nil
	}
}

// handleProcessDrip drains due synthetic comments.
func handleProcessDrip(logger *slog.Logger, deps Deps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		emitted := deps.Drip.ProcessDue(ctx, dripMaxPerRun)
		if emitted > 0 {
			logger.Info("drip comments emitted", "count", emitted)
		}
		return nil
	}
}

// handleRunDueJobs polls the schedule for due jobs.
func handleRunDueJobs(logger *slog.Logger, deps Deps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		processed := deps.Jobs.RunDue(ctx, dueJobsPerPoll)
		if processed > 0 {
			logger.Info("due jobs processed", "count", processed)
		}
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error("Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry {
			logger.Error("Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type())
		}
	}
}
