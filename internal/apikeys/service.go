package apikeys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feedbackhub/feedbackhub/internal/channels"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// RepositoryPort defines data access methods for API keys.
type RepositoryPort interface {
	ListKeys(ctx context.Context, projectID int64) ([]APIKey, error)
	CreateKey(ctx context.Context, k APIKey) (APIKey, error)
	RevokeKey(ctx context.Context, projectID, id int64, at time.Time) error
	FindActiveKey(ctx context.Context, rawKey string) (APIKey, error)
}

// ChannelDirectory resolves channels for ownership checks when issuing keys.
type ChannelDirectory interface {
	GetChannel(ctx context.Context, projectID, id int64) (channels.Channel, error)
}

// Service handles API key business logic.
type Service struct {
	repo     RepositoryPort
	channels ChannelDirectory
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, channels ChannelDirectory) *Service {
	return &Service{repo: repo, channels: channels}
}

// ListKeys returns the project's keys.
func (s *Service) ListKeys(ctx context.Context, projectID int64) ([]APIKey, error) {
	return s.repo.ListKeys(ctx, projectID)
}

// IssueKey mints a new key bound to one of the project's channels.
func (s *Service) IssueKey(ctx context.Context, projectID, channelID int64, label string) (APIKey, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return APIKey{}, fmt.Errorf("key label required: %w", shared.ErrValidation)
	}
	if _, err := s.channels.GetChannel(ctx, projectID, channelID); err != nil {
		return APIKey{}, err
	}
	return s.repo.CreateKey(ctx, APIKey{
		ProjectID: projectID,
		ChannelID: channelID,
		Key:       uuid.NewString(),
		Label:     label,
	})
}

// RevokeKey disables a key. Submissions using it fail from the next request.
func (s *Service) RevokeKey(ctx context.Context, projectID, id int64) error {
	return s.repo.RevokeKey(ctx, projectID, id, time.Now())
}

// Authenticate resolves a raw key from a public request. Unknown and revoked
// keys both collapse to ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (APIKey, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return APIKey{}, shared.ErrUnauthenticated
	}
	k, err := s.repo.FindActiveKey(ctx, rawKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return APIKey{}, shared.ErrUnauthenticated
		}
		return APIKey{}, err
	}
	return k, nil
}
