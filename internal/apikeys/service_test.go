package apikeys

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/channels"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

type mockRepo struct {
	keys   map[int64]APIKey
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{keys: make(map[int64]APIKey), nextID: 1}
}

func (m *mockRepo) ListKeys(ctx context.Context, projectID int64) ([]APIKey, error) {
	var out []APIKey
	for _, k := range m.keys {
		if k.ProjectID == projectID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *mockRepo) CreateKey(ctx context.Context, k APIKey) (APIKey, error) {
	k.ID = m.nextID
	m.nextID++
	k.CreatedAt = time.Now()
	m.keys[k.ID] = k
	return k, nil
}

func (m *mockRepo) RevokeKey(ctx context.Context, projectID, id int64, at time.Time) error {
	k, ok := m.keys[id]
	if !ok || k.ProjectID != projectID {
		return shared.ErrNotFound
	}
	if k.RevokedAt == nil {
		k.RevokedAt = &at
		m.keys[id] = k
	}
	return nil
}

func (m *mockRepo) FindActiveKey(ctx context.Context, rawKey string) (APIKey, error) {
	for _, k := range m.keys {
		if k.Key == rawKey && k.RevokedAt == nil {
			return k, nil
		}
	}
	return APIKey{}, shared.ErrNotFound
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

func newKeyService() (*Service, *mockRepo) {
	repo := newMockRepo()
	dir := &mockChannels{byID: map[int64]channels.Channel{
		10: {ID: 10, ProjectID: 1, Name: "Widget"},
		20: {ID: 20, ProjectID: 2, Name: "Email"},
	}}
	return NewService(repo, dir), repo
}

func TestIssueKeyChecksChannelOwnership(t *testing.T) {
	svc, _ := newKeyService()
	ctx := context.Background()

	_, err := svc.IssueKey(ctx, 1, 10, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	// Channel 20 belongs to project 2.
	_, err = svc.IssueKey(ctx, 1, 20, "widget key")
	require.ErrorIs(t, err, shared.ErrNotFound)

	key, err := svc.IssueKey(ctx, 1, 10, "widget key")
	require.NoError(t, err)
	assert.NotEmpty(t, key.Key)
	assert.Equal(t, int64(10), key.ChannelID)
	assert.True(t, key.Active())
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newKeyService()
	ctx := context.Background()

	key, err := svc.IssueKey(ctx, 1, 10, "widget key")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, key.Key)
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)

	_, err = svc.Authenticate(ctx, "")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = svc.Authenticate(ctx, "no-such-key")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestRevokedKeyStopsAuthenticating(t *testing.T) {
	svc, _ := newKeyService()
	ctx := context.Background()

	key, err := svc.IssueKey(ctx, 1, 10, "widget key")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeKey(ctx, 1, key.ID))
	// Idempotent.
	require.NoError(t, svc.RevokeKey(ctx, 1, key.ID))

	_, err = svc.Authenticate(ctx, key.Key)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)

	require.ErrorIs(t, svc.RevokeKey(ctx, 2, key.ID), shared.ErrNotFound)
}
