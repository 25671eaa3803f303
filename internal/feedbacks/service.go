package feedbacks

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/feedbackhub/feedbackhub/internal/channels"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const maxBodyLength = 20000

// RepositoryPort defines data access methods for feedback entries.
type RepositoryPort interface {
	CreateFeedback(ctx context.Context, fb Feedback, searchText string) (Feedback, error)
	ListFeedbacks(ctx context.Context, projectID int64, filter ListFilter) ([]Feedback, int, error)
	GetFeedback(ctx context.Context, projectID, id int64) (Feedback, error)
	UpdateFeedback(ctx context.Context, projectID, id int64, title, body, searchText string) (Feedback, error)
	DeleteFeedback(ctx context.Context, projectID, id int64) error
	StreamFeedbacks(ctx context.Context, projectID int64, channelID int64, fn func(Feedback) error) error
}

// ChannelDirectory resolves channel schemas for intake validation.
type ChannelDirectory interface {
	GetChannel(ctx context.Context, projectID, id int64) (channels.Channel, error)
}

// EventSink receives domain events after a successful write. Implementations
// must not block; failures never roll back the write.
type EventSink interface {
	FeedbackCreated(ctx context.Context, fb Feedback)
}

// CacheInvalidator bumps derived aggregates after writes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service handles feedback intake and curation.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	channels ChannelDirectory
	events   EventSink
	cache    CacheInvalidator
}

// NewService builds Service instance. events and cache may be nil.
func NewService(logger *slog.Logger, repo RepositoryPort, channels ChannelDirectory, events EventSink, cache CacheInvalidator) *Service {
	return &Service{logger: logger, repo: repo, channels: channels, events: events, cache: cache}
}

// Submit validates an entry against the channel schema and stores it. This is
// the single write path for both the public intake endpoint and imports.
func (s *Service) Submit(ctx context.Context, projectID, channelID int64, title, body, submitterEmail string, fields map[string]any) (Feedback, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Feedback{}, fmt.Errorf("title required: %w", shared.ErrValidation)
	}
	if len(body) > maxBodyLength {
		return Feedback{}, fmt.Errorf("body exceeds %d characters: %w", maxBodyLength, shared.ErrValidation)
	}
	ch, err := s.channels.GetChannel(ctx, projectID, channelID)
	if err != nil {
		return Feedback{}, err
	}
	if err := channels.ValidatePayload(ch.Fields, fields); err != nil {
		return Feedback{}, err
	}

	fb := Feedback{
		ProjectID:      projectID,
		ChannelID:      channelID,
		Title:          title,
		Body:           strings.TrimSpace(body),
		Fields:         fields,
		SubmitterEmail: strings.TrimSpace(strings.ToLower(submitterEmail)),
	}
	created, err := s.repo.CreateFeedback(ctx, fb, searchTextFor(fb))
	if err != nil {
		return Feedback{}, err
	}
	s.afterWrite(ctx)
	if s.events != nil {
		s.events.FeedbackCreated(ctx, created)
	}
	return created, nil
}

// ListFeedbacks returns one page of entries. The free-text query is folded
// the same way stored search text is, so matching ignores case and accents.
func (s *Service) ListFeedbacks(ctx context.Context, projectID int64, filter ListFilter) ([]Feedback, shared.Pagination, error) {
	filter.Query = normalizeSearchText(filter.Query)
	items, total, err := s.repo.ListFeedbacks(ctx, projectID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// GetFeedback returns a single entry.
func (s *Service) GetFeedback(ctx context.Context, projectID, id int64) (Feedback, error) {
	return s.repo.GetFeedback(ctx, projectID, id)
}

// UpdateFeedback edits title and body. Custom field values are immutable
// after intake.
func (s *Service) UpdateFeedback(ctx context.Context, projectID, id int64, title, body string) (Feedback, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Feedback{}, fmt.Errorf("title required: %w", shared.ErrValidation)
	}
	body = strings.TrimSpace(body)
	fb, err := s.repo.UpdateFeedback(ctx, projectID, id, title, body, normalizeSearchText(title, body))
	if err != nil {
		return Feedback{}, err
	}
	s.afterWrite(ctx)
	return fb, nil
}

// DeleteFeedback removes an entry.
func (s *Service) DeleteFeedback(ctx context.Context, projectID, id int64) error {
	if err := s.repo.DeleteFeedback(ctx, projectID, id); err != nil {
		return err
	}
	s.afterWrite(ctx)
	return nil
}

// StreamFeedbacks exposes the export walk.
func (s *Service) StreamFeedbacks(ctx context.Context, projectID, channelID int64, fn func(Feedback) error) error {
	return s.repo.StreamFeedbacks(ctx, projectID, channelID, fn)
}

// ChannelSchema resolves the field definitions used for export headers.
func (s *Service) ChannelSchema(ctx context.Context, projectID, channelID int64) ([]channels.FieldDef, error) {
	ch, err := s.channels.GetChannel(ctx, projectID, channelID)
	if err != nil {
		return nil, err
	}
	return ch.Fields, nil
}

func (s *Service) afterWrite(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("stats cache bump", slog.Any("error", err))
	}
}

func searchTextFor(fb Feedback) string {
	parts := []string{fb.Title, fb.Body}
	for _, v := range fb.Fields {
		if s, ok := v.(string); ok {
			parts = append(parts, s)
		}
	}
	return normalizeSearchText(parts...)
}
