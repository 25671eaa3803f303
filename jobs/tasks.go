package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/feedbackhub/feedbackhub/internal/webhooks"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskWebhookDeliver delivers one event envelope to one webhook.
	TaskWebhookDeliver = "webhook:deliver"
	// TaskStatsWarmup precomputes dashboard aggregates per project.
	TaskStatsWarmup = "stats:warmup"
	// TaskIdempotencyCleanup prunes expired intake deduplication keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// WebhookDeliverPayload identifies the hook and carries the signed envelope.
type WebhookDeliverPayload struct {
	WebhookID int64             `json:"webhook_id"`
	Envelope  webhooks.Envelope `json:"envelope"`
}

// NewWebhookDeliverTask constructs an Asynq task.
func NewWebhookDeliverTask(payload WebhookDeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookDeliver, data, asynq.MaxRetry(8)), nil
}

// StatsWarmupPayload selects the projects to warm. Empty means all.
type StatsWarmupPayload struct {
	ProjectIDs []int64 `json:"project_ids,omitempty"`
}

// NewStatsWarmupTask constructs an Asynq task.
func NewStatsWarmupTask(payload StatsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatsWarmup, data), nil
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
