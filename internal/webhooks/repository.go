package webhooks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Event subscriptions are
// stored as a text array on the webhook row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListWebhooks returns the project's webhooks.
func (r *Repository) ListWebhooks(ctx context.Context, projectID int64) ([]Webhook, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, url, secret, events, active, created_at, updated_at
		 FROM webhooks WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Webhook
	for rows.Next() {
		var wh Webhook
		if err := rows.Scan(&wh.ID, &wh.ProjectID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	return out, rows.Err()
}

// GetWebhook fetches one webhook scoped to the project.
func (r *Repository) GetWebhook(ctx context.Context, projectID, id int64) (Webhook, error) {
	var wh Webhook
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, url, secret, events, active, created_at, updated_at
		 FROM webhooks WHERE project_id = $1 AND id = $2`, projectID, id).
		Scan(&wh.ID, &wh.ProjectID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Webhook{}, shared.ErrNotFound
		}
		return Webhook{}, err
	}
	return wh, nil
}

// GetByID fetches a webhook without project scoping; the delivery worker
// resolves hooks by id alone.
func (r *Repository) GetByID(ctx context.Context, id int64) (Webhook, error) {
	var wh Webhook
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, url, secret, events, active, created_at, updated_at
		 FROM webhooks WHERE id = $1`, id).
		Scan(&wh.ID, &wh.ProjectID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Webhook{}, shared.ErrNotFound
		}
		return Webhook{}, err
	}
	return wh, nil
}

// ListActiveForEvent returns active hooks in the project subscribed to event.
func (r *Repository) ListActiveForEvent(ctx context.Context, projectID int64, event string) ([]Webhook, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, url, secret, events, active, created_at, updated_at
		 FROM webhooks WHERE project_id = $1 AND active AND $2 = ANY(events) ORDER BY id`,
		projectID, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Webhook
	for rows.Next() {
		var wh Webhook
		if err := rows.Scan(&wh.ID, &wh.ProjectID, &wh.URL, &wh.Secret, &wh.Events, &wh.Active, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	return out, rows.Err()
}

// CreateWebhook inserts a webhook.
func (r *Repository) CreateWebhook(ctx context.Context, wh Webhook) (Webhook, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO webhooks (project_id, url, secret, events, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		wh.ProjectID, wh.URL, wh.Secret, wh.Events, wh.Active).
		Scan(&wh.ID, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		return Webhook{}, err
	}
	return wh, nil
}

// UpdateWebhook replaces URL, subscriptions and the active flag.
func (r *Repository) UpdateWebhook(ctx context.Context, wh Webhook) (Webhook, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE webhooks SET url = $3, events = $4, active = $5, updated_at = NOW()
		 WHERE project_id = $1 AND id = $2
		 RETURNING secret, created_at, updated_at`,
		wh.ProjectID, wh.ID, wh.URL, wh.Events, wh.Active).
		Scan(&wh.Secret, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Webhook{}, shared.ErrNotFound
		}
		return Webhook{}, err
	}
	return wh, nil
}

// DeleteWebhook removes a webhook.
func (r *Repository) DeleteWebhook(ctx context.Context, projectID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhooks WHERE project_id = $1 AND id = $2`, projectID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
