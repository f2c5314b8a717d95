// Package scheduler provides asynq-backed background processing: draining
// the notification outbox and keeping trust scores fresh.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDrain = "notification.outbox.drain"

const TaskTrustSweep = "trust.score.sweep"

type OutboxDrainPayload struct {
	Limit int `json:"limit"`
}

func NewOutboxDrainTask(payload OutboxDrainPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDrain, data), nil
}

func ParseOutboxDrainPayload(task *asynq.Task) (OutboxDrainPayload, error) {
	var payload OutboxDrainPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutboxDrainPayload{}, err
	}
	return payload, nil
}

func NewTrustSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTrustSweep, nil)
}
