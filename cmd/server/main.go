package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkdrift/inkdrift/internal/api"
	"github.com/inkdrift/inkdrift/internal/config"
	"github.com/inkdrift/inkdrift/internal/content"
	"github.com/inkdrift/inkdrift/internal/database"
	"github.com/inkdrift/inkdrift/internal/drip"
	"github.com/inkdrift/inkdrift/internal/jobs"
	"github.com/inkdrift/inkdrift/internal/orchestrator"
	"github.com/inkdrift/inkdrift/internal/provider"
	"github.com/inkdrift/inkdrift/internal/streams"
	"github.com/inkdrift/inkdrift/internal/usage"
	"github.com/inkdrift/inkdrift/internal/worker"
)

func main() {
	cfg := config.Load()

	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	recorder := usage.NewRecorder(db, logger)
	gateway := provider.NewGateway(provider.GatewayOptions{
		Order:        provider.BuildOrder(cfg),
		ImageBackend: provider.BuildImageBackend(cfg),
		Sink:         recorder,
		Logger:       logger,
	})

	contentStore := content.NewStore(db, logger)
	resolver := content.NewResolver(db)
	dripScheduler := drip.NewScheduler(cfg, db, gateway, contentStore, logger)

	var images orchestrator.ImageRequester
	if cfg.ImageBuilds {
		publisher, err := streams.NewPublisher(cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to create image build publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		images = publisher

		stopConsumer, err := streams.StartBuildConsumer(cfg.RedisURL, gateway, contentStore)
		if err != nil {
			logger.Error("Failed to start image build consumer", "error", err)
			os.Exit(1)
		}
		defer stopConsumer()
	}

	orch := orchestrator.New(orchestrator.Options{
		Config:   cfg,
		Gateway:  gateway,
		Store:    contentStore,
		Resolver: resolver,
		Drip:     dripScheduler,
		Images:   images,
		State:    content.NewStateWriter(db),
		Logger:   logger,
	})

	jobStore := jobs.NewStore(db, orch, logger)

	trigger, closeTrigger, err := worker.OpenTrigger(cfg, logger)
	if err != nil {
		logger.Error("Failed to open trigger scheduler", "error", err)
		os.Exit(1)
	}
	defer closeTrigger()

	stopWorker, err := worker.Start(cfg, worker.Deps{
		Orchestrator: orch,
		Jobs:         jobStore,
		Drip:         dripScheduler,
		Trigger:      trigger,
	}, logger)
	if err != nil {
		logger.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg, logger)
	if err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer stopScheduler()

	if err := trigger.EnsureArmed(context.Background()); err != nil {
		// Not fatal: the next worker cycle re-arms.
		logger.Warn("Failed to arm article trigger", "error", err)
	}

	router := api.NewRouter(cfg, jobStore, gateway, recorder)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
}
