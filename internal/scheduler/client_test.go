package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type fakeSchedulerConfig struct {
	redisURL    string
	queue       string
	concurrency int
}

func (c fakeSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c fakeSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c fakeSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c fakeSchedulerConfig) GetAsynqConcurrency() int  { return c.concurrency }

func TestScheduleSubmissionExtractEnqueuesTask(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := fakeSchedulerConfig{
		redisURL: "redis://" + mr.Addr(),
		queue:    "intake",
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	err = client.ScheduleSubmissionExtract(context.Background(), SubmissionExtractPayload{SubmissionID: 42})
	if err != nil {
		t.Fatalf("ScheduleSubmissionExtract: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("intake")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(pending))
	}
	if pending[0].Type != TaskSubmissionExtract {
		t.Fatalf("expected task type %q, got %q", TaskSubmissionExtract, pending[0].Type)
	}

	var payload SubmissionExtractPayload
	if err := json.Unmarshal(pending[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.SubmissionID != 42 {
		t.Fatalf("expected submission id 42, got %d", payload.SubmissionID)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	_, err := NewClient(fakeSchedulerConfig{})
	if err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestSubmissionExtractPayloadRoundTrip(t *testing.T) {
	task, err := NewSubmissionExtractTask(SubmissionExtractPayload{SubmissionID: 7})
	if err != nil {
		t.Fatalf("NewSubmissionExtractTask: %v", err)
	}

	payload, err := ParseSubmissionExtractPayload(task)
	if err != nil {
		t.Fatalf("ParseSubmissionExtractPayload: %v", err)
	}
	if payload.SubmissionID != 7 {
		t.Fatalf("expected submission id 7, got %d", payload.SubmissionID)
	}
}

func TestNotificationOutboxDuePayloadRoundTrip(t *testing.T) {
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: "a0e1"})
	if err != nil {
		t.Fatalf("NewNotificationOutboxDueTask: %v", err)
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		t.Fatalf("ParseNotificationOutboxDuePayload: %v", err)
	}
	if payload.OutboxID != "a0e1" {
		t.Fatalf("expected outbox id a0e1, got %q", payload.OutboxID)
	}
}
