package stats

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository computes aggregates directly in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadOverview computes the project dashboard aggregate.
func (r *Repository) LoadOverview(ctx context.Context, projectID int64) (Overview, error) {
	var out Overview
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM feedbacks WHERE project_id = $1`, projectID).Scan(&out.TotalFeedbacks); err != nil {
		return Overview{}, err
	}
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM issues WHERE project_id = $1`, projectID).Scan(&out.TotalIssues); err != nil {
		return Overview{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, COUNT(f.id)
		 FROM channels c LEFT JOIN feedbacks f ON f.channel_id = c.id
		 WHERE c.project_id = $1
		 GROUP BY c.id, c.name ORDER BY c.id`, projectID)
	if err != nil {
		return Overview{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cc ChannelCount
		if err := rows.Scan(&cc.ChannelID, &cc.ChannelName, &cc.Count); err != nil {
			return Overview{}, err
		}
		out.FeedbacksByChannel = append(out.FeedbacksByChannel, cc)
	}
	if err := rows.Err(); err != nil {
		return Overview{}, err
	}

	statusRows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM issues WHERE project_id = $1 GROUP BY status ORDER BY status`, projectID)
	if err != nil {
		return Overview{}, err
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var sc StatusCount
		if err := statusRows.Scan(&sc.Status, &sc.Count); err != nil {
			return Overview{}, err
		}
		out.IssuesByStatus = append(out.IssuesByStatus, sc)
	}
	return out, statusRows.Err()
}

// LoadDaily returns per-day submission counts for the trailing window.
func (r *Repository) LoadDaily(ctx context.Context, projectID int64, days int) ([]DayCount, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM feedbacks
		 WHERE project_id = $1 AND created_at >= NOW() - INTERVAL '%d days'
		 GROUP BY created_at::date ORDER BY day`, days), projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
