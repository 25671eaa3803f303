package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/feedbackhub/feedbackhub/internal/jobs"
	"github.com/feedbackhub/feedbackhub/internal/shared"
	"github.com/feedbackhub/feedbackhub/internal/stats"
)

const statsWarmupLockTTL = 5 * time.Minute

// ProjectSource enumerates projects eligible for cache warmup.
type ProjectSource interface {
	ListProjectIDs(ctx context.Context) ([]int64, error)
}

// StatsWarmupHandler precomputes dashboard aggregates per project.
type StatsWarmupHandler struct {
	logger   *slog.Logger
	projects ProjectSource
	stats    *stats.Service
	redis    *redis.Client
	metrics  *jobmetrics.Metrics
}

// NewStatsWarmupHandler constructs the warmup handler.
func NewStatsWarmupHandler(logger *slog.Logger, projects ProjectSource, svc *stats.Service, rdb *redis.Client, metrics *jobmetrics.Metrics) *StatsWarmupHandler {
	return &StatsWarmupHandler{
		logger:   logger.With(slog.String("job", TaskStatsWarmup)),
		projects: projects,
		stats:    svc,
		redis:    rdb,
		metrics:  metrics,
	}
}

// Handle warms overview and daily aggregates for each project. A per-project
// redis lock keeps concurrent workers from duplicating the same warmup.
func (h *StatsWarmupHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskStatsWarmup)

	var payload StatsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			tracker.End(err)
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	ids := payload.ProjectIDs
	if len(ids) == 0 {
		var err error
		ids, err = h.projects.ListProjectIDs(ctx)
		if err != nil {
			tracker.End(err)
			return fmt.Errorf("list projects: %w", err)
		}
	}

	var failures int
	for _, projectID := range ids {
		if err := h.warmProject(ctx, projectID); err != nil {
			failures++
			h.logger.Warn("warmup failed",
				slog.Int64("project_id", projectID),
				slog.Any("error", err))
		}
	}
	if failures > 0 {
		err := fmt.Errorf("warmup incomplete: %d of %d projects failed", failures, len(ids))
		tracker.End(err)
		return err
	}

	h.logger.Info("warmup complete", slog.Int("projects", len(ids)))
	tracker.End(nil)
	return nil
}

func (h *StatsWarmupHandler) warmProject(ctx context.Context, projectID int64) error {
	lockKey := shared.StatsWarmupLockKey(projectID)
	acquired, err := h.redis.SetNX(ctx, lockKey, "1", statsWarmupLockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		h.logger.Info("warmup already in progress", slog.Int64("project_id", projectID))
		return nil
	}
	defer h.redis.Del(context.WithoutCancel(ctx), lockKey)

	return h.stats.Warm(ctx, projectID)
}
