package scheduler

import (
	"context"
	"fmt"

	"uw_workbench_backend/internal/events"
	"uw_workbench_backend/platform/config"
	"uw_workbench_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SubmissionProcessor runs the extraction and triage pipeline for one
// submission. Implemented by the submissions processing service.
type SubmissionProcessor interface {
	Process(ctx context.Context, submissionID int64) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor SubmissionProcessor
	bus       events.Bus
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor SubmissionProcessor, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		bus:       bus,
		log:       log,
	}

	mux.HandleFunc(TaskSubmissionExtract, w.handleSubmissionExtract)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

func (w *Worker) handleSubmissionExtract(ctx context.Context, task *asynq.Task) error {
	if w.processor == nil {
		return nil
	}

	payload, err := ParseSubmissionExtractPayload(task)
	if err != nil {
		return err
	}

	if err := w.processor.Process(ctx, payload.SubmissionID); err != nil {
		w.log.Error("submission processing failed", "submission_id", payload.SubmissionID, "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
