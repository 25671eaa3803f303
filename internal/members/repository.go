package members

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

// ListMembers returns users holding at least one role in the project, with
// their role names aggregated.
func (r *Repository) ListMembers(ctx context.Context, projectID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.name,
		       ARRAY_AGG(ro.id ORDER BY ro.name),
		       ARRAY_AGG(ro.name ORDER BY ro.name),
		       MIN(ra.created_at)
		FROM role_assignments ra
		JOIN users u ON u.id = ra.user_id
		JOIN roles ro ON ro.id = ra.role_id
		WHERE ra.project_id = $1
		GROUP BY u.id, u.email, u.name
		ORDER BY u.email`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &m.RoleIDs, &m.Roles, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateInvitation stores an invitation row.
func (r *Repository) CreateInvitation(ctx context.Context, inv Invitation) (Invitation, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO invitations (project_id, email, role_id, token, created_at, expires_at) VALUES ($1, $2, $3, $4, NOW(), $5) RETURNING id, created_at`,
		inv.ProjectID, inv.Email, inv.RoleID, inv.Token, inv.ExpiresAt).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// GetInvitationByToken fetches a pending invitation.
func (r *Repository) GetInvitationByToken(ctx context.Context, token string) (Invitation, error) {
	var inv Invitation
	err := r.pool.QueryRow(ctx, `SELECT id, project_id, email, role_id, token, created_at, expires_at, accepted_at FROM invitations WHERE token = $1`, token).
		Scan(&inv.ID, &inv.ProjectID, &inv.Email, &inv.RoleID, &inv.Token, &inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invitation{}, shared.ErrNotFound
		}
		return Invitation{}, err
	}
	return inv, nil
}

// MarkAccepted stamps the invitation as used.
func (r *Repository) MarkAccepted(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invitations SET accepted_at = $2 WHERE id = $1 AND accepted_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConflict
	}
	return nil
}
