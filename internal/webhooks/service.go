package webhooks

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// RepositoryPort defines data access methods for webhooks.
type RepositoryPort interface {
	ListWebhooks(ctx context.Context, projectID int64) ([]Webhook, error)
	GetWebhook(ctx context.Context, projectID, id int64) (Webhook, error)
	CreateWebhook(ctx context.Context, wh Webhook) (Webhook, error)
	UpdateWebhook(ctx context.Context, wh Webhook) (Webhook, error)
	DeleteWebhook(ctx context.Context, projectID, id int64) error
}

// Service handles webhook configuration business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListWebhooks returns the project's webhooks.
func (s *Service) ListWebhooks(ctx context.Context, projectID int64) ([]Webhook, error) {
	return s.repo.ListWebhooks(ctx, projectID)
}

// GetWebhook returns a single webhook.
func (s *Service) GetWebhook(ctx context.Context, projectID, id int64) (Webhook, error) {
	return s.repo.GetWebhook(ctx, projectID, id)
}

// CreateWebhook registers a subscriber endpoint with a fresh signing secret.
func (s *Service) CreateWebhook(ctx context.Context, projectID int64, rawURL string, events []string) (Webhook, error) {
	cleanURL, err := validateURL(rawURL)
	if err != nil {
		return Webhook{}, err
	}
	cleanEvents, err := validateEvents(events)
	if err != nil {
		return Webhook{}, err
	}
	return s.repo.CreateWebhook(ctx, Webhook{
		ProjectID: projectID,
		URL:       cleanURL,
		Secret:    uuid.NewString(),
		Events:    cleanEvents,
		Active:    true,
	})
}

// UpdateWebhook changes the endpoint, subscriptions or active flag. The
// signing secret never changes after creation.
func (s *Service) UpdateWebhook(ctx context.Context, projectID, id int64, rawURL string, events []string, active bool) (Webhook, error) {
	cleanURL, err := validateURL(rawURL)
	if err != nil {
		return Webhook{}, err
	}
	cleanEvents, err := validateEvents(events)
	if err != nil {
		return Webhook{}, err
	}
	return s.repo.UpdateWebhook(ctx, Webhook{
		ID:        id,
		ProjectID: projectID,
		URL:       cleanURL,
		Events:    cleanEvents,
		Active:    active,
	})
}

// DeleteWebhook removes a subscriber.
func (s *Service) DeleteWebhook(ctx context.Context, projectID, id int64) error {
	return s.repo.DeleteWebhook(ctx, projectID, id)
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("webhook url must be absolute http(s): %w", shared.ErrValidation)
	}
	return raw, nil
}

func validateEvents(events []string) ([]string, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("at least one event required: %w", shared.ErrValidation)
	}
	known := make(map[string]struct{}, 3)
	for _, e := range KnownEvents() {
		known[e] = struct{}{}
	}
	seen := make(map[string]struct{}, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		e = strings.TrimSpace(e)
		if _, ok := known[e]; !ok {
			return nil, fmt.Errorf("unknown event %q: %w", e, shared.ErrValidation)
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}
