package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const pgUniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for roles and
// assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles in the project scope ordered by name.
func (r *Repository) ListRoles(ctx context.Context, projectID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, project_id, name, description, created_at, updated_at FROM roles WHERE project_id = $1 ORDER BY name`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.ProjectID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, project_id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.ProjectID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// GetRolePermissions returns the permissions granted to a role.
func (r *Repository) GetRolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission FROM role_permissions WHERE role_id = $1 ORDER BY permission`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreateRole inserts a role and its permission grants in one transaction.
// A duplicate name within the project maps to shared.ErrConflict.
func (r *Repository) CreateRole(ctx context.Context, projectID int64, name, description string, permissions []string) (Role, error) {
	var role Role
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO roles (project_id, name, description, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, project_id, name, description, created_at, updated_at`, projectID, name, description).
			Scan(&role.ID, &role.ProjectID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return mapUniqueViolation(err)
		}
		for _, perm := range permissions {
			if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING`, role.ID, perm); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// RenameRole updates a role's name and description.
func (r *Repository) RenameRole(ctx context.Context, id int64, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1 RETURNING id, project_id, name, description, created_at, updated_at`, id, name, description).
		Scan(&role.ID, &role.ProjectID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, mapUniqueViolation(err)
	}
	return role, nil
}

// DeleteRole removes a role. The delete is blocked with shared.ErrConflict
// while assignments still reference the role; it never cascades.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var assignments int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM role_assignments WHERE role_id = $1`, id).Scan(&assignments); err != nil {
			return err
		}
		if assignments > 0 {
			return fmt.Errorf("role has %d active assignments: %w", assignments, shared.ErrConflict)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// GrantPermission adds a permission to a role. Granting an already-held
// permission is a no-op.
func (r *Repository) GrantPermission(ctx context.Context, roleID int64, permission string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permission)
	return err
}

// RevokePermission removes a permission from a role. Revoking an unheld
// permission is a no-op.
func (r *Repository) RevokePermission(ctx context.Context, roleID int64, permission string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission = $2`, roleID, permission)
	return err
}

// Assign binds a user to a role within the project. Assigning twice keeps a
// single row.
func (r *Repository) Assign(ctx context.Context, userID, roleID, projectID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO role_assignments (user_id, role_id, project_id, created_at) VALUES ($1, $2, $3, NOW()) ON CONFLICT (user_id, role_id, project_id) DO NOTHING`, userID, roleID, projectID)
	return err
}

// Revoke removes an assignment. Revoking a missing assignment is a no-op.
func (r *Repository) Revoke(ctx context.Context, userID, roleID, projectID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_assignments WHERE user_id = $1 AND role_id = $2 AND project_id = $3`, userID, roleID, projectID)
	return err
}

// ListRolesForUser returns the roles assigned to a user within the scope.
func (r *Repository) ListRolesForUser(ctx context.Context, userID, projectID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.project_id, r.name, r.description, r.created_at, r.updated_at FROM roles r JOIN role_assignments ra ON ra.role_id = r.id WHERE ra.user_id = $1 AND ra.project_id = $2 ORDER BY r.name`, userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.ProjectID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// EffectivePermissions returns the deduplicated union of permissions across
// the user's assignments in exactly this scope. Single query, no caching;
// the service layer folds the platform scope in on top.
func (r *Repository) EffectivePermissions(ctx context.Context, userID, projectID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT rp.permission FROM role_assignments ra JOIN role_permissions rp ON rp.role_id = ra.role_id WHERE ra.user_id = $1 AND ra.project_id = $2 ORDER BY rp.permission`, userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, shared.ErrConflict)
	}
	return err
}
