package stats

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

type countingRepo struct {
	overviewLoads atomic.Int64
	dailyLoads    atomic.Int64
	overview      Overview
}

func (r *countingRepo) LoadOverview(ctx context.Context, projectID int64) (Overview, error) {
	r.overviewLoads.Add(1)
	return r.overview, nil
}

func (r *countingRepo) LoadDaily(ctx context.Context, projectID int64, days int) ([]DayCount, error) {
	r.dailyLoads.Add(1)
	return []DayCount{{Day: "2026-08-30", Count: 3}}, nil
}

func newStatsService(t *testing.T) (*Service, *countingRepo, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	repo := &countingRepo{overview: Overview{TotalFeedbacks: 12, TotalIssues: 4}}
	return NewService(repo, cache), repo, cache
}

func TestOverviewCachesUntilBump(t *testing.T) {
	svc, repo, cache := newStatsService(t)
	ctx := context.Background()

	out, err := svc.Overview(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), out.TotalFeedbacks)
	assert.Equal(t, int64(1), repo.overviewLoads.Load())

	// Second call hits the cache.
	_, err = svc.Overview(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repo.overviewLoads.Load())

	// A write bumps the version and retires the cached key.
	require.NoError(t, cache.Bump(ctx))
	_, err = svc.Overview(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.overviewLoads.Load())
}

func TestOverviewKeysAreProjectScoped(t *testing.T) {
	svc, repo, _ := newStatsService(t)
	ctx := context.Background()

	_, err := svc.Overview(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Overview(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.overviewLoads.Load())
}

func TestDailyWindowValidation(t *testing.T) {
	svc, repo, _ := newStatsService(t)
	ctx := context.Background()

	_, err := svc.Daily(ctx, 1, 400)
	require.ErrorIs(t, err, shared.ErrValidation)

	out, err := svc.Daily(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(3), out[0].Count)
	assert.Equal(t, int64(1), repo.dailyLoads.Load())
}

func TestWarmPrecomputesAggregates(t *testing.T) {
	svc, repo, _ := newStatsService(t)
	ctx := context.Background()

	require.NoError(t, svc.Warm(ctx, 1))
	assert.Equal(t, int64(1), repo.overviewLoads.Load())
	assert.Equal(t, int64(1), repo.dailyLoads.Load())

	// Warmed values serve reads without further loads.
	_, err := svc.Overview(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Daily(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repo.overviewLoads.Load())
	assert.Equal(t, int64(1), repo.dailyLoads.Load())
}
