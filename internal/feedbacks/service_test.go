package feedbacks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/channels"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

type storedFeedback struct {
	fb         Feedback
	searchText string
}

type mockRepo struct {
	entries map[int64]storedFeedback
	nextID  int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{entries: make(map[int64]storedFeedback), nextID: 1}
}

func (m *mockRepo) CreateFeedback(ctx context.Context, fb Feedback, searchText string) (Feedback, error) {
	fb.ID = m.nextID
	m.nextID++
	fb.CreatedAt = time.Now()
	fb.UpdatedAt = fb.CreatedAt
	m.entries[fb.ID] = storedFeedback{fb: fb, searchText: searchText}
	return fb, nil
}

func (m *mockRepo) ListFeedbacks(ctx context.Context, projectID int64, filter ListFilter) ([]Feedback, int, error) {
	var out []Feedback
	for _, e := range m.entries {
		if e.fb.ProjectID != projectID {
			continue
		}
		if filter.ChannelID > 0 && e.fb.ChannelID != filter.ChannelID {
			continue
		}
		if filter.Query != "" && !strings.Contains(e.searchText, filter.Query) {
			continue
		}
		out = append(out, e.fb)
	}
	return out, len(out), nil
}

func (m *mockRepo) GetFeedback(ctx context.Context, projectID, id int64) (Feedback, error) {
	e, ok := m.entries[id]
	if !ok || e.fb.ProjectID != projectID {
		return Feedback{}, shared.ErrNotFound
	}
	return e.fb, nil
}

func (m *mockRepo) UpdateFeedback(ctx context.Context, projectID, id int64, title, body, searchText string) (Feedback, error) {
	e, ok := m.entries[id]
	if !ok || e.fb.ProjectID != projectID {
		return Feedback{}, shared.ErrNotFound
	}
	e.fb.Title = title
	e.fb.Body = body
	e.fb.UpdatedAt = time.Now()
	e.searchText = searchText
	m.entries[id] = e
	return e.fb, nil
}

func (m *mockRepo) DeleteFeedback(ctx context.Context, projectID, id int64) error {
	e, ok := m.entries[id]
	if !ok || e.fb.ProjectID != projectID {
		return shared.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockRepo) StreamFeedbacks(ctx context.Context, projectID int64, channelID int64, fn func(Feedback) error) error {
	for _, e := range m.entries {
		if e.fb.ProjectID != projectID {
			continue
		}
		if channelID > 0 && e.fb.ChannelID != channelID {
			continue
		}
		if err := fn(e.fb); err != nil {
			return err
		}
	}
	return nil
}

type mockChannels struct {
	byID map[int64]channels.Channel
}

func (m *mockChannels) GetChannel(ctx context.Context, projectID, id int64) (channels.Channel, error) {
	ch, ok := m.byID[id]
	if !ok || ch.ProjectID != projectID {
		return channels.Channel{}, shared.ErrNotFound
	}
	return ch, nil
}

type recordingSink struct {
	created []Feedback
}

func (r *recordingSink) FeedbackCreated(ctx context.Context, fb Feedback) {
	r.created = append(r.created, fb)
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func newFeedbackService() (*Service, *mockRepo, *recordingSink, *countingCache) {
	repo := newMockRepo()
	dir := &mockChannels{byID: map[int64]channels.Channel{
		10: {ID: 10, ProjectID: 1, Name: "Widget", Fields: []channels.FieldDef{
			{Key: "rating", Type: channels.FieldNumber, Required: true},
			{Key: "severity", Type: channels.FieldSelect, Options: []string{"low", "high"}},
		}},
	}}
	sink := &recordingSink{}
	cache := &countingCache{}
	return NewService(nil, repo, dir, sink, cache), repo, sink, cache
}

func TestSubmitValidatesAgainstChannelSchema(t *testing.T) {
	svc, _, sink, cache := newFeedbackService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, 10, "", "", "", nil)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Submit(ctx, 1, 10, "broken", "", "", map[string]any{})
	require.ErrorIs(t, err, shared.ErrValidation, "missing required rating")

	_, err = svc.Submit(ctx, 1, 10, "broken", "", "", map[string]any{"rating": float64(3), "severity": "medium"})
	require.ErrorIs(t, err, shared.ErrValidation, "severity outside options")

	_, err = svc.Submit(ctx, 1, 99, "broken", "", "", map[string]any{"rating": float64(3)})
	require.ErrorIs(t, err, shared.ErrNotFound, "unknown channel")

	assert.Empty(t, sink.created)
	assert.Zero(t, cache.bumps)

	fb, err := svc.Submit(ctx, 1, 10, "Login broken", "cannot sign in", "User@Example.com", map[string]any{"rating": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", fb.SubmitterEmail)
	require.Len(t, sink.created, 1)
	assert.Equal(t, fb.ID, sink.created[0].ID)
	assert.Equal(t, 1, cache.bumps)
}

func TestSearchIgnoresCaseAndAccents(t *testing.T) {
	svc, _, _, _ := newFeedbackService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, 10, "Réservé page crash", "détails here", "", map[string]any{"rating": float64(1)})
	require.NoError(t, err)

	for _, q := range []string{"reserve", "RESERVE", "Réservé", "details"} {
		items, _, err := svc.ListFeedbacks(ctx, 1, ListFilter{Query: q})
		require.NoError(t, err)
		assert.Len(t, items, 1, "query %q", q)
	}

	items, _, err := svc.ListFeedbacks(ctx, 1, ListFilter{Query: "unrelated"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchIndexesStringFieldValues(t *testing.T) {
	svc, _, _, _ := newFeedbackService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, 10, "Slow load", "", "", map[string]any{"rating": float64(2), "severity": "high"})
	require.NoError(t, err)

	items, _, err := svc.ListFeedbacks(ctx, 1, ListFilter{Query: "high"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListFiltersByChannelAndProject(t *testing.T) {
	svc, repo, _, _ := newFeedbackService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, 10, "one", "", "", map[string]any{"rating": float64(1)})
	require.NoError(t, err)
	// Entry outside the project, inserted directly.
	repo.entries[99] = storedFeedback{fb: Feedback{ID: 99, ProjectID: 2, ChannelID: 10, Title: "other"}}

	items, _, err := svc.ListFeedbacks(ctx, 1, ListFilter{ChannelID: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "one", items[0].Title)

	items, _, err = svc.ListFeedbacks(ctx, 1, ListFilter{ChannelID: 11})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateRefreshesSearchText(t *testing.T) {
	svc, _, _, cache := newFeedbackService()
	ctx := context.Background()

	fb, err := svc.Submit(ctx, 1, 10, "Old title", "", "", map[string]any{"rating": float64(1)})
	require.NoError(t, err)
	bumpsBefore := cache.bumps

	_, err = svc.UpdateFeedback(ctx, 1, fb.ID, "Brand new title", "fresh body")
	require.NoError(t, err)
	assert.Equal(t, bumpsBefore+1, cache.bumps)

	items, _, err := svc.ListFeedbacks(ctx, 1, ListFilter{Query: "brand"})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, _, err = svc.ListFeedbacks(ctx, 1, ListFilter{Query: "old"})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.UpdateFeedback(ctx, 2, fb.ID, "x", "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
