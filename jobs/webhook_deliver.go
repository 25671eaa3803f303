package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/feedbackhub/feedbackhub/internal/jobs"
	"github.com/feedbackhub/feedbackhub/internal/shared"
	"github.com/feedbackhub/feedbackhub/internal/webhooks"
)

// WebhookSource loads webhook records for delivery.
type WebhookSource interface {
	GetByID(ctx context.Context, id int64) (webhooks.Webhook, error)
}

// WebhookDeliverHandler executes queued webhook deliveries.
type WebhookDeliverHandler struct {
	logger     *slog.Logger
	repo       WebhookSource
	dispatcher *webhooks.Dispatcher
	metrics    *jobmetrics.Metrics
}

// NewWebhookDeliverHandler constructs the delivery handler.
func NewWebhookDeliverHandler(logger *slog.Logger, repo WebhookSource, dispatcher *webhooks.Dispatcher, metrics *jobmetrics.Metrics) *WebhookDeliverHandler {
	return &WebhookDeliverHandler{
		logger:     logger.With(slog.String("job", TaskWebhookDeliver)),
		repo:       repo,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// Handle processes one delivery task. Non-2xx responses return an error so
// Asynq retries with backoff; structural problems skip retries entirely.
func (h *WebhookDeliverHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskWebhookDeliver)

	var payload WebhookDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		tracker.End(err)
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	wh, err := h.repo.GetByID(ctx, payload.WebhookID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Warn("webhook vanished before delivery", slog.Int64("webhook_id", payload.WebhookID))
			tracker.End(nil)
			return nil
		}
		tracker.End(err)
		return err
	}
	if !wh.Active || !wh.Subscribed(payload.Envelope.Event) {
		h.logger.Info("skipping delivery",
			slog.Int64("webhook_id", wh.ID),
			slog.String("event", payload.Envelope.Event),
			slog.Bool("active", wh.Active))
		tracker.End(nil)
		return nil
	}

	if err := h.dispatcher.Deliver(ctx, wh, payload.Envelope); err != nil {
		h.metrics.AddDelivery(payload.Envelope.Event, "failed")
		tracker.End(err)
		return fmt.Errorf("deliver webhook %d: %w", wh.ID, err)
	}

	h.metrics.AddDelivery(payload.Envelope.Event, "delivered")
	tracker.End(nil)
	return nil
}
