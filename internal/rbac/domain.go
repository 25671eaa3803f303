package rbac

import "time"

// Role represents a named permission bundle scoped to a project. ProjectID
// zero denotes a platform-level role.
type Role struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleWithPermissions carries a role together with its granted permissions.
type RoleWithPermissions struct {
	Role
	Permissions []string `json:"permissions"`
}

// Assignment binds a user to a role within a project scope. A user may hold
// several assignments in the same scope; the effective permission set is the
// union across all of them.
type Assignment struct {
	UserID    int64     `json:"user_id"`
	RoleID    int64     `json:"role_id"`
	ProjectID int64     `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision labels the outcome of a guard evaluation.
type Decision string

const (
	DecisionAllow           Decision = "allow"
	DecisionUnauthenticated Decision = "deny_unauthenticated"
	DecisionForbidden       Decision = "deny_forbidden"
	DecisionError           Decision = "deny_error"
)
