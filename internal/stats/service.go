package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const defaultDailyWindow = 30

// RepositoryPort defines the aggregate loaders.
type RepositoryPort interface {
	LoadOverview(ctx context.Context, projectID int64) (Overview, error)
	LoadDaily(ctx context.Context, projectID int64, days int) ([]DayCount, error)
}

// Service answers dashboard queries through the versioned cache. Concurrent
// cache misses for the same key collapse to one database load.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService builds Service instance. cache may be nil, which disables
// memoisation but keeps results correct.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Overview returns the project dashboard aggregate.
func (s *Service) Overview(ctx context.Context, projectID int64) (Overview, error) {
	key, err := s.cache.BuildKey(ctx, keyOverview(projectID))
	if err != nil {
		return Overview{}, err
	}
	var out Overview
	err = s.fetch(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.LoadOverview(ctx, projectID)
	})
	return out, err
}

// Daily returns per-day submission counts for the trailing window.
func (s *Service) Daily(ctx context.Context, projectID int64, days int) ([]DayCount, error) {
	if days <= 0 {
		days = defaultDailyWindow
	}
	if days > 365 {
		return nil, fmt.Errorf("window capped at 365 days: %w", shared.ErrValidation)
	}
	key, err := s.cache.BuildKey(ctx, keyDaily(projectID, days))
	if err != nil {
		return nil, err
	}
	var out []DayCount
	err = s.fetch(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.LoadDaily(ctx, projectID, days)
	})
	return out, err
}

// Warm precomputes the project's aggregates, typically from a background job.
func (s *Service) Warm(ctx context.Context, projectID int64) error {
	if _, err := s.Overview(ctx, projectID); err != nil {
		return err
	}
	_, err := s.Daily(ctx, projectID, defaultDailyWindow)
	return err
}

func (s *Service) fetch(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var tmp interface{}
		err := s.cache.FetchJSON(ctx, key, &tmp, loader)
		return tmp, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return remarshal(res.Val, dest)
	}
}

func remarshal(value interface{}, dest interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
