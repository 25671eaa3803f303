package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

type mockRepo struct {
	channels map[int64]Channel
	nextID   int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{channels: make(map[int64]Channel), nextID: 1}
}

func (m *mockRepo) ListChannels(ctx context.Context, projectID int64) ([]Channel, error) {
	var out []Channel
	for _, ch := range m.channels {
		if ch.ProjectID == projectID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (m *mockRepo) GetChannel(ctx context.Context, projectID, id int64) (Channel, error) {
	ch, ok := m.channels[id]
	if !ok || ch.ProjectID != projectID {
		return Channel{}, shared.ErrNotFound
	}
	return ch, nil
}

func (m *mockRepo) CreateChannel(ctx context.Context, ch Channel) (Channel, error) {
	ch.ID = m.nextID
	m.nextID++
	m.channels[ch.ID] = ch
	return ch, nil
}

func (m *mockRepo) UpdateChannel(ctx context.Context, ch Channel) (Channel, error) {
	existing, ok := m.channels[ch.ID]
	if !ok || existing.ProjectID != ch.ProjectID {
		return Channel{}, shared.ErrNotFound
	}
	m.channels[ch.ID] = ch
	return ch, nil
}

func (m *mockRepo) DeleteChannel(ctx context.Context, projectID, id int64) error {
	ch, ok := m.channels[id]
	if !ok || ch.ProjectID != projectID {
		return shared.ErrNotFound
	}
	delete(m.channels, id)
	return nil
}

func TestCreateChannelSchemaValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	cases := []struct {
		name   string
		fields []FieldDef
	}{
		{"empty key", []FieldDef{{Key: " ", Type: FieldText}}},
		{"duplicate key", []FieldDef{{Key: "rating", Type: FieldNumber}, {Key: "Rating", Type: FieldText}}},
		{"unknown type", []FieldDef{{Key: "x", Type: "blob"}}},
		{"select without options", []FieldDef{{Key: "severity", Type: FieldSelect}}},
		{"options on text field", []FieldDef{{Key: "note", Type: FieldText, Options: []string{"a"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateChannel(ctx, 1, "Widget", "", tc.fields)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	_, err := svc.CreateChannel(ctx, 1, "", "", nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateChannelNormalizesFields(t *testing.T) {
	svc := NewService(newMockRepo())

	ch, err := svc.CreateChannel(context.Background(), 1, " Widget ", "web widget", []FieldDef{
		{Key: " Rating ", Type: FieldNumber, Required: true},
		{Key: "severity", Type: FieldSelect, Options: []string{"low", "high"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget", ch.Name)
	require.Len(t, ch.Fields, 2)
	assert.Equal(t, "rating", ch.Fields[0].Key)
	assert.Equal(t, "rating", ch.Fields[0].Label)
}

func TestValidatePayload(t *testing.T) {
	fields := []FieldDef{
		{Key: "title", Type: FieldText, Required: true},
		{Key: "rating", Type: FieldNumber},
		{Key: "severity", Type: FieldSelect, Options: []string{"low", "high"}},
		{Key: "reported_on", Type: FieldDate},
		{Key: "browser", Type: FieldKeyword},
	}

	require.NoError(t, ValidatePayload(fields, map[string]any{
		"title":       "login broken",
		"rating":      float64(3),
		"severity":    "high",
		"reported_on": "2026-08-30",
		"browser":     "firefox",
	}))

	// Optional fields may be absent.
	require.NoError(t, ValidatePayload(fields, map[string]any{"title": "ok"}))

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"missing required", map[string]any{"rating": float64(1)}},
		{"blank required", map[string]any{"title": "   "}},
		{"unknown key", map[string]any{"title": "x", "extra": "y"}},
		{"bad number", map[string]any{"title": "x", "rating": "lots"}},
		{"bad select value", map[string]any{"title": "x", "severity": "medium"}},
		{"bad date", map[string]any{"title": "x", "reported_on": "tomorrow"}},
		{"wrong type", map[string]any{"title": 42}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, ValidatePayload(fields, tc.payload), shared.ErrValidation)
		})
	}
}

func TestDeleteChannelScopedToProject(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	ch, err := svc.CreateChannel(ctx, 1, "Widget", "", nil)
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteChannel(ctx, 2, ch.ID), shared.ErrNotFound)
	require.NoError(t, svc.DeleteChannel(ctx, 1, ch.ID))
}
