package feedbacks

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/channels"
)

func TestWriteFeedbackCSV(t *testing.T) {
	fields := []channels.FieldDef{
		{Key: "rating", Label: "Rating", Type: channels.FieldNumber},
		{Key: "severity", Label: "Severity", Type: channels.FieldSelect, Options: []string{"low", "high"}},
	}
	created := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	entries := []Feedback{
		{ID: 1, ChannelID: 10, Title: "Login broken", Body: "cannot sign in", SubmitterEmail: "a@b.c", CreatedAt: created,
			Fields: map[string]any{"rating": float64(3), "severity": "high"}},
		{ID: 2, ChannelID: 10, Title: "Comma, quoted \"title\"", CreatedAt: created,
			Fields: map[string]any{"rating": float64(1.5)}},
	}

	var buf bytes.Buffer
	err := WriteFeedbackCSV(&buf, fields, func(fn func(Feedback) error) error {
		for _, fb := range entries {
			if err := fn(fb); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"ID", "Channel", "Title", "Body", "Submitter", "Created At", "Rating", "Severity"}, records[0])
	assert.Equal(t, []string{"1", "10", "Login broken", "cannot sign in", "a@b.c", "2026-08-30T12:00:00Z", "3", "high"}, records[1])
	assert.Equal(t, `Comma, quoted "title"`, records[2][2])
	assert.Equal(t, "1.5", records[2][6])
	assert.Equal(t, "", records[2][7], "absent field value stays empty")
}

func TestNormalizeSearchText(t *testing.T) {
	assert.Equal(t, "reserve page", normalizeSearchText("  Réservé ", "PAGE"))
	assert.Equal(t, "", normalizeSearchText("", "  "))
	assert.Equal(t, "a b c", normalizeSearchText("a\tb\n c"))
}
