package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	rows       []TimelineRow
	lastLimit  int
	lastOffset int
}

func (s *stubRepo) TimelineWindow(_ context.Context, _ TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *stubRepo) TimelineAll(_ context.Context, _ TimelineFilters) ([]TimelineRow, error) {
	return s.rows, nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, 0, n)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows = append(rows, TimelineRow{
			At:       base.Add(-time.Duration(i) * time.Minute),
			ActorID:  int64(i + 1),
			Action:   "channel.create",
			Entity:   "channel",
			EntityID: "42",
		})
	}
	return rows
}

func TestTimelineDefaultsAndNextPage(t *testing.T) {
	repo := &stubRepo{rows: makeRows(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Equal(t, 21, repo.lastLimit)
	require.Equal(t, 0, repo.lastOffset)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{rows: makeRows(10)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 51, repo.lastLimit)
	require.Equal(t, 100, repo.lastOffset)
	require.Equal(t, 50, result.Paging.PageSize)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.PrevPage)
}

func TestWriteTimelineCSV(t *testing.T) {
	rows := []TimelineRow{
		{
			At:         time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
			ActorID:    7,
			ActorEmail: "ops@example.com",
			Action:     "authz.deny",
			Entity:     "project",
			EntityID:   "3",
			Meta:       map[string]any{"decision": "deny_forbidden"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTimelineCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []string{"At", "Actor ID", "Actor Email", "Action", "Entity", "Entity ID", "Meta"}, records[0])
	require.Equal(t, "2026-05-01T12:00:00Z", records[1][0])
	require.Equal(t, "7", records[1][1])
	require.Equal(t, "ops@example.com", records[1][2])
	require.Contains(t, records[1][6], "deny_forbidden")
}
