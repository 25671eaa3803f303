package issues

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// RepositoryPort defines data access methods for issues.
type RepositoryPort interface {
	CreateIssue(ctx context.Context, issue Issue) (Issue, error)
	ListIssues(ctx context.Context, projectID int64, filter ListFilter) ([]Issue, int, error)
	GetIssue(ctx context.Context, projectID, id int64) (Issue, error)
	UpdateIssue(ctx context.Context, projectID, id int64, title, description string) error
	SetStatus(ctx context.Context, projectID, id int64, status Status) error
	AttachFeedback(ctx context.Context, projectID, issueID, feedbackID int64) error
	DetachFeedback(ctx context.Context, projectID, issueID, feedbackID int64) error
	ListLinkedFeedbackIDs(ctx context.Context, projectID, issueID int64) ([]int64, error)
}

// EventSink receives domain events after a successful write. Implementations
// must not block; failures never roll back the write.
type EventSink interface {
	IssueCreated(ctx context.Context, issue Issue)
	IssueStatusChanged(ctx context.Context, issue Issue, from Status)
}

// CacheInvalidator bumps derived aggregates after writes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service handles issue triage business logic.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	events EventSink
	cache  CacheInvalidator
}

// NewService builds Service instance. events and cache may be nil.
func NewService(logger *slog.Logger, repo RepositoryPort, events EventSink, cache CacheInvalidator) *Service {
	return &Service{logger: logger, repo: repo, events: events, cache: cache}
}

// CreateIssue opens a new issue.
func (s *Service) CreateIssue(ctx context.Context, projectID int64, title, description string) (Issue, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Issue{}, fmt.Errorf("issue title required: %w", shared.ErrValidation)
	}
	issue, err := s.repo.CreateIssue(ctx, Issue{
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      StatusOpen,
	})
	if err != nil {
		return Issue{}, err
	}
	s.afterWrite(ctx)
	if s.events != nil {
		s.events.IssueCreated(ctx, issue)
	}
	return issue, nil
}

// ListIssues returns one page of issues.
func (s *Service) ListIssues(ctx context.Context, projectID int64, filter ListFilter) ([]Issue, shared.Pagination, error) {
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, shared.Pagination{}, fmt.Errorf("unknown status %q: %w", filter.Status, shared.ErrValidation)
	}
	items, total, err := s.repo.ListIssues(ctx, projectID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// GetIssue returns a single issue.
func (s *Service) GetIssue(ctx context.Context, projectID, id int64) (Issue, error) {
	return s.repo.GetIssue(ctx, projectID, id)
}

// UpdateIssue edits title and description.
func (s *Service) UpdateIssue(ctx context.Context, projectID, id int64, title, description string) (Issue, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Issue{}, fmt.Errorf("issue title required: %w", shared.ErrValidation)
	}
	if err := s.repo.UpdateIssue(ctx, projectID, id, title, strings.TrimSpace(description)); err != nil {
		return Issue{}, err
	}
	return s.repo.GetIssue(ctx, projectID, id)
}

// ChangeStatus moves the issue through triage. Moves outside the transition
// table are rejected; a no-op move to the current status is a conflict.
func (s *Service) ChangeStatus(ctx context.Context, projectID, id int64, to Status) (Issue, error) {
	if !ValidStatus(to) {
		return Issue{}, fmt.Errorf("unknown status %q: %w", to, shared.ErrValidation)
	}
	issue, err := s.repo.GetIssue(ctx, projectID, id)
	if err != nil {
		return Issue{}, err
	}
	if issue.Status == to {
		return Issue{}, fmt.Errorf("issue already %s: %w", to, shared.ErrConflict)
	}
	if !CanTransition(issue.Status, to) {
		return Issue{}, fmt.Errorf("cannot move issue from %s to %s: %w", issue.Status, to, shared.ErrValidation)
	}
	if err := s.repo.SetStatus(ctx, projectID, id, to); err != nil {
		return Issue{}, err
	}
	from := issue.Status
	issue.Status = to
	s.afterWrite(ctx)
	if s.events != nil {
		s.events.IssueStatusChanged(ctx, issue, from)
	}
	return issue, nil
}

// AttachFeedback links a feedback entry to the issue.
func (s *Service) AttachFeedback(ctx context.Context, projectID, issueID, feedbackID int64) error {
	if err := s.repo.AttachFeedback(ctx, projectID, issueID, feedbackID); err != nil {
		return err
	}
	s.afterWrite(ctx)
	return nil
}

// DetachFeedback removes a link.
func (s *Service) DetachFeedback(ctx context.Context, projectID, issueID, feedbackID int64) error {
	if err := s.repo.DetachFeedback(ctx, projectID, issueID, feedbackID); err != nil {
		return err
	}
	s.afterWrite(ctx)
	return nil
}

// LinkedFeedbackIDs returns ids of the entries linked to an issue.
func (s *Service) LinkedFeedbackIDs(ctx context.Context, projectID, issueID int64) ([]int64, error) {
	if _, err := s.repo.GetIssue(ctx, projectID, issueID); err != nil {
		return nil, err
	}
	return s.repo.ListLinkedFeedbackIDs(ctx, projectID, issueID)
}

func (s *Service) afterWrite(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("stats cache bump", slog.Any("error", err))
	}
}
