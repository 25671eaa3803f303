package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/feedbackhub/feedbackhub/internal/jobs"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const idempotencyRetention = 48 * time.Hour

// IdempotencyCleanupHandler prunes expired intake idempotency keys.
type IdempotencyCleanupHandler struct {
	logger  *slog.Logger
	store   *shared.IdempotencyStore
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupHandler constructs the cleanup handler.
func NewIdempotencyCleanupHandler(logger *slog.Logger, store *shared.IdempotencyStore, metrics *jobmetrics.Metrics) *IdempotencyCleanupHandler {
	return &IdempotencyCleanupHandler{
		logger:  logger.With(slog.String("job", TaskIdempotencyCleanup)),
		store:   store,
		metrics: metrics,
	}
}

// Handle removes idempotency records older than the retention window.
func (h *IdempotencyCleanupHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskIdempotencyCleanup)

	if err := h.store.Cleanup(ctx, idempotencyRetention); err != nil {
		tracker.End(err)
		return fmt.Errorf("cleanup idempotency keys: %w", err)
	}

	h.logger.Info("idempotency cleanup complete")
	tracker.End(nil)
	return nil
}
