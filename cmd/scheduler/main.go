package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uw_workbench_backend/internal/email"
	"uw_workbench_backend/internal/events"
	extraction "uw_workbench_backend/internal/extraction/client"
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

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	businessRules, err := rules.Load(cfg.GetBusinessConfigPath())
	if err != nil {
		log.Error("failed to load business rules", "path", cfg.GetBusinessConfigPath(), "error", err)
		panic("failed to load business rules: " + err.Error())
	}

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

	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg, log)

	notificationModule := notification.New(outbox.New(pool), sender, businessRules.Templates, log)
	notificationModule.RegisterHandlers(eventBus)

	val := validator.New()

	// Worker-side pipeline wiring (no HTTP handlers required).
	underwritersModule := underwriters.NewModule(pool, val, log)
	workItemsModule := workitems.NewModule(pool, underwritersModule.Repository(), businessRules, eventBus, val, log)
	submissionsModule := submissions.NewModule(submissions.Deps{
		Pool:      pool,
		Extractor: extraction.New(cfg, log),
		WorkItems: workItemsModule.Service(),
		Config:    businessRules,
		Bus:       eventBus,
		Validator: val,
		Logger:    log,
	})
	submissionsModule.RegisterHandlers(eventBus)

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, submissionsModule.Processor(), eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
