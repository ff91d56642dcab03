package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSubmissionExtract = "submissions.extract"

const TaskNotificationOutboxDue = "notification.outbox.due"

type SubmissionExtractPayload struct {
	SubmissionID int64 `json:"submissionId"`
}

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

func NewSubmissionExtractTask(payload SubmissionExtractPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSubmissionExtract, data), nil
}

func ParseSubmissionExtractPayload(task *asynq.Task) (SubmissionExtractPayload, error) {
	var payload SubmissionExtractPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SubmissionExtractPayload{}, err
	}
	return payload, nil
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}
