package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// Store defines the persistence surface the service depends on.
type Store interface {
	ListRoles(ctx context.Context, projectID int64) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRolePermissions(ctx context.Context, roleID int64) ([]string, error)
	CreateRole(ctx context.Context, projectID int64, name, description string, permissions []string) (Role, error)
	RenameRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	GrantPermission(ctx context.Context, roleID int64, permission string) error
	RevokePermission(ctx context.Context, roleID int64, permission string) error
	Assign(ctx context.Context, userID, roleID, projectID int64) error
	Revoke(ctx context.Context, userID, roleID, projectID int64) error
	ListRolesForUser(ctx context.Context, userID, projectID int64) ([]Role, error)
	EffectivePermissions(ctx context.Context, userID, projectID int64) ([]string, error)
}

// Service orchestrates role and assignment operations, validating permission
// tags against the catalog before they reach the store.
type Service struct {
	store   Store
	catalog *Catalog
}

// NewService constructs a Service.
func NewService(store Store, catalog *Catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

// Catalog exposes the permission catalog for enumeration endpoints.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// ListRoles returns project roles with their permissions.
func (s *Service) ListRoles(ctx context.Context, projectID int64) ([]RoleWithPermissions, error) {
	roles, err := s.store.ListRoles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		perms, err := s.store.GetRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleWithPermissions{Role: role, Permissions: perms})
	}
	return out, nil
}

// GetRole fetches a role with its permissions.
func (s *Service) GetRole(ctx context.Context, id int64) (RoleWithPermissions, error) {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return RoleWithPermissions{}, err
	}
	perms, err := s.store.GetRolePermissions(ctx, role.ID)
	if err != nil {
		return RoleWithPermissions{}, err
	}
	return RoleWithPermissions{Role: role, Permissions: perms}, nil
}

// CreateRole validates and inserts a new role in the project scope.
func (s *Service) CreateRole(ctx context.Context, projectID int64, name, description string, permissions []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("role name required: %w", shared.ErrValidation)
	}
	normalized := normalizePermissions(permissions)
	for _, perm := range normalized {
		if !s.catalog.Contains(perm) {
			return Role{}, fmt.Errorf("unknown permission %q: %w", perm, shared.ErrValidation)
		}
	}
	return s.store.CreateRole(ctx, projectID, name, strings.TrimSpace(description), normalized)
}

// RenameRole changes a role's name, keeping per-project uniqueness.
func (s *Service) RenameRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("role name required: %w", shared.ErrValidation)
	}
	return s.store.RenameRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role. Deletion is blocked while assignments reference
// the role; callers must revoke first.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.store.DeleteRole(ctx, id)
}

// GrantPermission adds a catalog permission to a role, idempotently.
func (s *Service) GrantPermission(ctx context.Context, roleID int64, permission string) error {
	permission = strings.TrimSpace(strings.ToLower(permission))
	if !s.catalog.Contains(permission) {
		return fmt.Errorf("unknown permission %q: %w", permission, shared.ErrValidation)
	}
	return s.store.GrantPermission(ctx, roleID, permission)
}

// RevokePermission removes a permission from a role, idempotently.
func (s *Service) RevokePermission(ctx context.Context, roleID int64, permission string) error {
	return s.store.RevokePermission(ctx, roleID, strings.TrimSpace(strings.ToLower(permission)))
}

// AssignRole binds a user to a role inside the role's own project scope. The
// scope is taken from the role so a grant can never leak across projects.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	return s.store.Assign(ctx, userID, role.ID, role.ProjectID)
}

// RevokeRole removes an assignment. Safe to retry.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID int64) error {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	return s.store.Revoke(ctx, userID, role.ID, role.ProjectID)
}

// ListRolesForUser returns the user's roles within the scope.
func (s *Service) ListRolesForUser(ctx context.Context, userID, projectID int64) ([]Role, error) {
	return s.store.ListRolesForUser(ctx, userID, projectID)
}

// EffectivePermissions returns deduplicated permission names for a user in
// the scope. Platform-scope grants fold into every project scope, so a
// platform administrator can act inside projects they were never individually
// assigned to; grants in one project stay invisible in every other project.
func (s *Service) EffectivePermissions(ctx context.Context, userID, projectID int64) ([]string, error) {
	perms, err := s.store.EffectivePermissions(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if projectID == shared.PlatformScopeID {
		return perms, nil
	}
	platform, err := s.store.EffectivePermissions(ctx, userID, shared.PlatformScopeID)
	if err != nil {
		return nil, err
	}
	if len(platform) == 0 {
		return perms, nil
	}
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		seen[p] = struct{}{}
	}
	for _, p := range platform {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	return perms, nil
}
