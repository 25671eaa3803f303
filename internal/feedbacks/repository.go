package feedbacks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateFeedback inserts an entry together with its folded search text.
func (r *Repository) CreateFeedback(ctx context.Context, fb Feedback, searchText string) (Feedback, error) {
	fields, err := json.Marshal(fb.Fields)
	if err != nil {
		return Feedback{}, err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO feedbacks (project_id, channel_id, title, body, fields, submitter_email, search_text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		fb.ProjectID, fb.ChannelID, fb.Title, fb.Body, fields, fb.SubmitterEmail, searchText).
		Scan(&fb.ID, &fb.CreatedAt, &fb.UpdatedAt)
	if err != nil {
		return Feedback{}, err
	}
	return fb, nil
}

// ListFeedbacks returns one page of entries plus the unpaged total.
func (r *Repository) ListFeedbacks(ctx context.Context, projectID int64, filter ListFilter) ([]Feedback, int, error) {
	where := []string{"project_id = $1"}
	args := []any{projectID}
	if filter.ChannelID > 0 {
		args = append(args, filter.ChannelID)
		where = append(where, fmt.Sprintf("channel_id = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where = append(where, fmt.Sprintf("search_text LIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM feedbacks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, p.PerPage, p.Offset())
	query := fmt.Sprintf(
		`SELECT id, project_id, channel_id, title, body, fields, COALESCE(submitter_email, ''), created_at, updated_at
		 FROM feedbacks WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, fb)
	}
	return out, total, rows.Err()
}

// GetFeedback fetches one entry scoped to the project.
func (r *Repository) GetFeedback(ctx context.Context, projectID, id int64) (Feedback, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, project_id, channel_id, title, body, fields, COALESCE(submitter_email, ''), created_at, updated_at
		 FROM feedbacks WHERE project_id = $1 AND id = $2`, projectID, id)
	fb, err := scanFeedback(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feedback{}, shared.ErrNotFound
		}
		return Feedback{}, err
	}
	return fb, nil
}

// UpdateFeedback replaces title and body, refreshing the search text.
func (r *Repository) UpdateFeedback(ctx context.Context, projectID, id int64, title, body, searchText string) (Feedback, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE feedbacks SET title = $3, body = $4, search_text = $5, updated_at = NOW()
		 WHERE project_id = $1 AND id = $2
		 RETURNING id, project_id, channel_id, title, body, fields, COALESCE(submitter_email, ''), created_at, updated_at`,
		projectID, id, title, body, searchText)
	fb, err := scanFeedback(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feedback{}, shared.ErrNotFound
		}
		return Feedback{}, err
	}
	return fb, nil
}

// DeleteFeedback removes an entry and its issue links.
func (r *Repository) DeleteFeedback(ctx context.Context, projectID, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM feedback_issues WHERE feedback_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM feedbacks WHERE project_id = $1 AND id = $2`, projectID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return tx.Commit(ctx)
}

// StreamFeedbacks walks every matching entry in insertion order for exports.
func (r *Repository) StreamFeedbacks(ctx context.Context, projectID int64, channelID int64, fn func(Feedback) error) error {
	where := "project_id = $1"
	args := []any{projectID}
	if channelID > 0 {
		where += " AND channel_id = $2"
		args = append(args, channelID)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, channel_id, title, body, fields, COALESCE(submitter_email, ''), created_at, updated_at
		 FROM feedbacks WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return err
		}
		if err := fn(fb); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanFeedback(row pgx.Row) (Feedback, error) {
	var fb Feedback
	var fields []byte
	if err := row.Scan(&fb.ID, &fb.ProjectID, &fb.ChannelID, &fb.Title, &fb.Body, &fields, &fb.SubmitterEmail, &fb.CreatedAt, &fb.UpdatedAt); err != nil {
		return Feedback{}, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &fb.Fields); err != nil {
			return Feedback{}, err
		}
	}
	return fb, nil
}
