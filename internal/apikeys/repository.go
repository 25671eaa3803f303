package apikeys

import (
	"context"
	"errors"
	"time"

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

// ListKeys returns the project's API keys, newest first.
func (r *Repository) ListKeys(ctx context.Context, projectID int64) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, channel_id, key, label, created_at, revoked_at
		 FROM api_keys WHERE project_id = $1 ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.ProjectID, &k.ChannelID, &k.Key, &k.Label, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// CreateKey inserts a new key.
func (r *Repository) CreateKey(ctx context.Context, k APIKey) (APIKey, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO api_keys (project_id, channel_id, key, label, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, created_at`,
		k.ProjectID, k.ChannelID, k.Key, k.Label).
		Scan(&k.ID, &k.CreatedAt)
	if err != nil {
		return APIKey{}, err
	}
	return k, nil
}

// RevokeKey soft-deletes a key. Revoking twice is a no-op.
func (r *Repository) RevokeKey(ctx context.Context, projectID, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = COALESCE(revoked_at, $3) WHERE project_id = $1 AND id = $2`,
		projectID, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindActiveKey resolves a raw key to its record if it has not been revoked.
func (r *Repository) FindActiveKey(ctx context.Context, rawKey string) (APIKey, error) {
	var k APIKey
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, channel_id, key, label, created_at, revoked_at
		 FROM api_keys WHERE key = $1 AND revoked_at IS NULL`, rawKey).
		Scan(&k.ID, &k.ProjectID, &k.ChannelID, &k.Key, &k.Label, &k.CreatedAt, &k.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return APIKey{}, shared.ErrNotFound
		}
		return APIKey{}, err
	}
	return k, nil
}
