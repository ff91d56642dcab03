package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uw_workbench_backend/internal/adapters/storage"
	"uw_workbench_backend/internal/email"
	"uw_workbench_backend/internal/events"
	apphttp "uw_workbench_backend/internal/http"
	"uw_workbench_backend/internal/http/router"
	"uw_workbench_backend/internal/notification"
	"uw_workbench_backend/internal/notification/outbox"
	"uw_workbench_backend/internal/rules"
	"uw_workbench_backend/internal/scheduler"
	"uw_workbench_backend/internal/submissions"
	"uw_workbench_backend/internal/underwriters"
	"uw_workbench_backend/internal/workitems"
	"uw_workbench_backend/platform/config"
	"uw_workbench_backend/platform/db"
	"uw_workbench_backend/platform/logger"
	"uw_workbench_backend/platform/validator"

	extraction "uw_workbench_backend/internal/extraction/client"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	// Business rules are mandatory: without them no validation, scoring, or
	// routing decision is defined.
	businessRules, err := rules.Load(cfg.GetBusinessConfigPath())
	if err != nil {
		log.Error("failed to load business rules", "path", cfg.GetBusinessConfigPath(), "error", err)
		panic("failed to load business rules: " + err.Error())
	}
	log.Info("business rules loaded", "path", cfg.GetBusinessConfigPath())

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	extractScheduler, closeScheduler := initExtractionScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender := email.NewSender(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for attachment uploads (MinIO); optional in
	// environments without object storage.
	var storageSvc storage.Service
	if cfg.IsMinIOEnabled() {
		svc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure attachments bucket", 5, 2*time.Second, func() error {
			return svc.EnsureBucketExists(ctx, cfg.GetMinioBucketSubmissionAttachments())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		storageSvc = svc
		log.Info("storage service initialized",
			"attachmentsBucket", cfg.GetMinioBucketSubmissionAttachments())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; attachment uploads disabled")
	}

	extractionClient := extraction.New(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(outbox.New(pool), sender, businessRules.Templates, log)
	notificationModule.RegisterHandlers(eventBus)

	underwritersModule := underwriters.NewModule(pool, val, log)
	workItemsModule := workitems.NewModule(pool, underwritersModule.Repository(), businessRules, eventBus, val, log)
	submissionsModule := submissions.NewModule(submissions.Deps{
		Pool:      pool,
		Scheduler: extractScheduler,
		Storage:   storageSvc,
		Bucket:    cfg.GetMinioBucketSubmissionAttachments(),
		Extractor: extractionClient,
		WorkItems: workItemsModule.Service(),
		Config:    businessRules,
		Bus:       eventBus,
		Validator: val,
		Logger:    log,
	})
	submissionsModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			submissionsModule,
			workItemsModule,
			underwritersModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initExtractionScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ExtractionScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background extraction disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
