package issues

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

type mockRepo struct {
	issues map[int64]Issue
	links  map[[2]int64]bool
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{issues: make(map[int64]Issue), links: make(map[[2]int64]bool), nextID: 1}
}

func (m *mockRepo) CreateIssue(ctx context.Context, issue Issue) (Issue, error) {
	issue.ID = m.nextID
	m.nextID++
	issue.CreatedAt = time.Now()
	issue.UpdatedAt = issue.CreatedAt
	m.issues[issue.ID] = issue
	return issue, nil
}

func (m *mockRepo) ListIssues(ctx context.Context, projectID int64, filter ListFilter) ([]Issue, int, error) {
	var out []Issue
	for _, i := range m.issues {
		if i.ProjectID != projectID {
			continue
		}
		if filter.Status != "" && i.Status != filter.Status {
			continue
		}
		out = append(out, i)
	}
	return out, len(out), nil
}

func (m *mockRepo) GetIssue(ctx context.Context, projectID, id int64) (Issue, error) {
	i, ok := m.issues[id]
	if !ok || i.ProjectID != projectID {
		return Issue{}, shared.ErrNotFound
	}
	count := 0
	for link, present := range m.links {
		if present && link[0] == id {
			count++
		}
	}
	i.FeedbackCount = count
	return i, nil
}

func (m *mockRepo) UpdateIssue(ctx context.Context, projectID, id int64, title, description string) error {
	i, ok := m.issues[id]
	if !ok || i.ProjectID != projectID {
		return shared.ErrNotFound
	}
	i.Title = title
	i.Description = description
	m.issues[id] = i
	return nil
}

func (m *mockRepo) SetStatus(ctx context.Context, projectID, id int64, status Status) error {
	i, ok := m.issues[id]
	if !ok || i.ProjectID != projectID {
		return shared.ErrNotFound
	}
	i.Status = status
	m.issues[id] = i
	return nil
}

func (m *mockRepo) AttachFeedback(ctx context.Context, projectID, issueID, feedbackID int64) error {
	i, ok := m.issues[issueID]
	if !ok || i.ProjectID != projectID {
		return shared.ErrNotFound
	}
	key := [2]int64{issueID, feedbackID}
	if m.links[key] {
		return shared.ErrConflict
	}
	m.links[key] = true
	return nil
}

func (m *mockRepo) DetachFeedback(ctx context.Context, projectID, issueID, feedbackID int64) error {
	key := [2]int64{issueID, feedbackID}
	if !m.links[key] {
		return shared.ErrNotFound
	}
	delete(m.links, key)
	return nil
}

func (m *mockRepo) ListLinkedFeedbackIDs(ctx context.Context, projectID, issueID int64) ([]int64, error) {
	var out []int64
	for link, present := range m.links {
		if present && link[0] == issueID {
			out = append(out, link[1])
		}
	}
	return out, nil
}

type recordingSink struct {
	created     []Issue
	transitions []string
}

func (r *recordingSink) IssueCreated(ctx context.Context, issue Issue) {
	r.created = append(r.created, issue)
}

func (r *recordingSink) IssueStatusChanged(ctx context.Context, issue Issue, from Status) {
	r.transitions = append(r.transitions, string(from)+"->"+string(issue.Status))
}

func newIssueService() (*Service, *mockRepo, *recordingSink) {
	repo := newMockRepo()
	sink := &recordingSink{}
	return NewService(nil, repo, sink, nil), repo, sink
}

func TestCreateIssueStartsOpen(t *testing.T) {
	svc, _, sink := newIssueService()
	ctx := context.Background()

	_, err := svc.CreateIssue(ctx, 1, "  ", "")
	require.ErrorIs(t, err, shared.ErrValidation)

	issue, err := svc.CreateIssue(ctx, 1, "Crash on login", "several reports")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, issue.Status)
	require.Len(t, sink.created, 1)
}

func TestStatusTransitions(t *testing.T) {
	svc, _, sink := newIssueService()
	ctx := context.Background()

	issue, err := svc.CreateIssue(ctx, 1, "Crash on login", "")
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, 1, issue.ID, "bogus")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.ChangeStatus(ctx, 1, issue.ID, StatusOpen)
	require.ErrorIs(t, err, shared.ErrConflict, "no-op move")

	got, err := svc.ChangeStatus(ctx, 1, issue.ID, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)

	got, err = svc.ChangeStatus(ctx, 1, issue.ID, StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, got.Status)

	// resolved -> in_progress is not in the transition table.
	_, err = svc.ChangeStatus(ctx, 1, issue.ID, StatusInProgress)
	require.ErrorIs(t, err, shared.ErrValidation)

	// Reopen, then close.
	_, err = svc.ChangeStatus(ctx, 1, issue.ID, StatusOpen)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, 1, issue.ID, StatusClosed)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"open->in_progress",
		"in_progress->resolved",
		"resolved->open",
		"open->closed",
	}, sink.transitions)
}

func TestChangeStatusScopedToProject(t *testing.T) {
	svc, _, _ := newIssueService()
	ctx := context.Background()

	issue, err := svc.CreateIssue(ctx, 1, "Crash on login", "")
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, 2, issue.ID, StatusClosed)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAttachDetachFeedback(t *testing.T) {
	svc, _, _ := newIssueService()
	ctx := context.Background()

	issue, err := svc.CreateIssue(ctx, 1, "Crash on login", "")
	require.NoError(t, err)

	require.NoError(t, svc.AttachFeedback(ctx, 1, issue.ID, 7))
	require.ErrorIs(t, svc.AttachFeedback(ctx, 1, issue.ID, 7), shared.ErrConflict)

	got, err := svc.GetIssue(ctx, 1, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FeedbackCount)

	ids, err := svc.LinkedFeedbackIDs(ctx, 1, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)

	require.NoError(t, svc.DetachFeedback(ctx, 1, issue.ID, 7))
	require.ErrorIs(t, svc.DetachFeedback(ctx, 1, issue.ID, 7), shared.ErrNotFound)
}

func TestListIssuesRejectsUnknownStatusFilter(t *testing.T) {
	svc, _, _ := newIssueService()
	_, _, err := svc.ListIssues(context.Background(), 1, ListFilter{Status: "weird"})
	require.ErrorIs(t, err, shared.ErrValidation)
}
