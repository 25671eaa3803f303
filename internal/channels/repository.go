package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const pgUniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence. Field definitions live
// in a JSONB column next to the channel row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListChannels returns the project's channels.
func (r *Repository) ListChannels(ctx context.Context, projectID int64) ([]Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, name, description, fields, created_at, updated_at
		 FROM channels WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// GetChannel fetches one channel scoped to the project.
func (r *Repository) GetChannel(ctx context.Context, projectID, id int64) (Channel, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, project_id, name, description, fields, created_at, updated_at
		 FROM channels WHERE project_id = $1 AND id = $2`, projectID, id)
	ch, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Channel{}, shared.ErrNotFound
		}
		return Channel{}, err
	}
	return ch, nil
}

// CreateChannel inserts a channel with its field schema.
func (r *Repository) CreateChannel(ctx context.Context, ch Channel) (Channel, error) {
	fields, err := json.Marshal(ch.Fields)
	if err != nil {
		return Channel{}, err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO channels (project_id, name, description, fields, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		ch.ProjectID, ch.Name, ch.Description, fields).
		Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return Channel{}, mapUniqueViolation(err)
	}
	return ch, nil
}

// UpdateChannel replaces the channel's name, description and field schema.
func (r *Repository) UpdateChannel(ctx context.Context, ch Channel) (Channel, error) {
	fields, err := json.Marshal(ch.Fields)
	if err != nil {
		return Channel{}, err
	}
	err = r.pool.QueryRow(ctx,
		`UPDATE channels SET name = $3, description = $4, fields = $5, updated_at = NOW()
		 WHERE project_id = $1 AND id = $2
		 RETURNING created_at, updated_at`,
		ch.ProjectID, ch.ID, ch.Name, ch.Description, fields).
		Scan(&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Channel{}, shared.ErrNotFound
		}
		return Channel{}, mapUniqueViolation(err)
	}
	return ch, nil
}

// DeleteChannel removes a channel. Deletion is blocked while feedback entries
// still reference it.
func (r *Repository) DeleteChannel(ctx context.Context, projectID, id int64) error {
	var count int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM feedbacks WHERE channel_id = $1`, id).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("channel has %d feedback entries: %w", count, shared.ErrConflict)
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE project_id = $1 AND id = $2`, projectID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanChannel(row pgx.Row) (Channel, error) {
	var ch Channel
	var fields []byte
	if err := row.Scan(&ch.ID, &ch.ProjectID, &ch.Name, &ch.Description, &fields, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
		return Channel{}, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &ch.Fields); err != nil {
			return Channel{}, err
		}
	}
	return ch, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("channel name already in use: %w", shared.ErrConflict)
	}
	return err
}
