package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/feedbackhub/feedbackhub/internal/feedbacks"
	"github.com/feedbackhub/feedbackhub/internal/issues"
)

// Enqueuer hands deliveries to the background queue.
type Enqueuer interface {
	EnqueueDelivery(ctx context.Context, webhookID int64, env Envelope) error
}

// EventRepository lists the hooks an event fans out to.
type EventRepository interface {
	ListActiveForEvent(ctx context.Context, projectID int64, event string) ([]Webhook, error)
}

// Sink receives domain events and queues one delivery per subscribed hook.
// It never fails the calling write: queueing errors are logged and dropped.
type Sink struct {
	logger   *slog.Logger
	repo     EventRepository
	enqueuer Enqueuer
}

// NewSink builds Sink instance.
func NewSink(logger *slog.Logger, repo EventRepository, enqueuer Enqueuer) *Sink {
	return &Sink{logger: logger, repo: repo, enqueuer: enqueuer}
}

// FeedbackCreated fans out a feedback.created event.
func (s *Sink) FeedbackCreated(ctx context.Context, fb feedbacks.Feedback) {
	s.fanOut(ctx, fb.ProjectID, EventFeedbackCreated, map[string]any{
		"feedback_id": fb.ID,
		"channel_id":  fb.ChannelID,
		"title":       fb.Title,
	})
}

// IssueCreated fans out an issue.created event.
func (s *Sink) IssueCreated(ctx context.Context, issue issues.Issue) {
	s.fanOut(ctx, issue.ProjectID, EventIssueCreated, map[string]any{
		"issue_id": issue.ID,
		"title":    issue.Title,
		"status":   issue.Status,
	})
}

// IssueStatusChanged fans out an issue.status_changed event.
func (s *Sink) IssueStatusChanged(ctx context.Context, issue issues.Issue, from issues.Status) {
	s.fanOut(ctx, issue.ProjectID, EventIssueStatusChanged, map[string]any{
		"issue_id": issue.ID,
		"from":     from,
		"to":       issue.Status,
	})
}

func (s *Sink) fanOut(ctx context.Context, projectID int64, event string, data map[string]any) {
	if s == nil || s.enqueuer == nil {
		return
	}
	hooks, err := s.repo.ListActiveForEvent(ctx, projectID, event)
	if err != nil {
		s.warn("list webhooks", event, err)
		return
	}
	if len(hooks) == 0 {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		s.warn("marshal event", event, err)
		return
	}
	env := Envelope{
		Event:      event,
		ProjectID:  projectID,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	for _, wh := range hooks {
		if err := s.enqueuer.EnqueueDelivery(ctx, wh.ID, env); err != nil {
			s.warn("enqueue delivery", event, err)
		}
	}
}

func (s *Sink) warn(msg, event string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.String("event", event), slog.Any("error", err))
	}
}
