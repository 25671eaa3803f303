package rbac

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

type mockStore struct {
	roles       map[int64]Role
	rolePerms   map[int64]map[string]struct{}
	assignments map[[3]int64]struct{}
	nextRoleID  int64
}

func newMockStore() *mockStore {
	return &mockStore{
		roles:       make(map[int64]Role),
		rolePerms:   make(map[int64]map[string]struct{}),
		assignments: make(map[[3]int64]struct{}),
		nextRoleID:  1,
	}
}

func (m *mockStore) ListRoles(ctx context.Context, projectID int64) ([]Role, error) {
	var out []Role
	for _, role := range m.roles {
		if role.ProjectID == projectID {
			out = append(out, role)
		}
	}
	return out, nil
}

func (m *mockStore) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockStore) GetRolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	var out []string
	for p := range m.rolePerms[roleID] {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockStore) CreateRole(ctx context.Context, projectID int64, name, description string, permissions []string) (Role, error) {
	for _, role := range m.roles {
		if role.ProjectID == projectID && role.Name == name {
			return Role{}, fmt.Errorf("roles_project_id_name_key: %w", shared.ErrConflict)
		}
	}
	role := Role{ID: m.nextRoleID, ProjectID: projectID, Name: name, Description: description}
	m.nextRoleID++
	m.roles[role.ID] = role
	perms := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		perms[p] = struct{}{}
	}
	m.rolePerms[role.ID] = perms
	return role, nil
}

func (m *mockStore) RenameRole(ctx context.Context, id int64, name, description string) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	for _, other := range m.roles {
		if other.ID != id && other.ProjectID == role.ProjectID && other.Name == name {
			return Role{}, fmt.Errorf("roles_project_id_name_key: %w", shared.ErrConflict)
		}
	}
	role.Name = name
	role.Description = description
	m.roles[id] = role
	return role, nil
}

func (m *mockStore) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	for key := range m.assignments {
		if key[1] == id {
			return fmt.Errorf("role has active assignments: %w", shared.ErrConflict)
		}
	}
	delete(m.roles, id)
	delete(m.rolePerms, id)
	return nil
}

func (m *mockStore) GrantPermission(ctx context.Context, roleID int64, permission string) error {
	if m.rolePerms[roleID] == nil {
		m.rolePerms[roleID] = make(map[string]struct{})
	}
	m.rolePerms[roleID][permission] = struct{}{}
	return nil
}

func (m *mockStore) RevokePermission(ctx context.Context, roleID int64, permission string) error {
	delete(m.rolePerms[roleID], permission)
	return nil
}

func (m *mockStore) Assign(ctx context.Context, userID, roleID, projectID int64) error {
	m.assignments[[3]int64{userID, roleID, projectID}] = struct{}{}
	return nil
}

func (m *mockStore) Revoke(ctx context.Context, userID, roleID, projectID int64) error {
	delete(m.assignments, [3]int64{userID, roleID, projectID})
	return nil
}

func (m *mockStore) ListRolesForUser(ctx context.Context, userID, projectID int64) ([]Role, error) {
	var out []Role
	for key := range m.assignments {
		if key[0] == userID && key[2] == projectID {
			out = append(out, m.roles[key[1]])
		}
	}
	return out, nil
}

func (m *mockStore) EffectivePermissions(ctx context.Context, userID, projectID int64) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for key := range m.assignments {
		if key[0] != userID || key[2] != projectID {
			continue
		}
		for p := range m.rolePerms[key[1]] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestService() (*Service, *mockStore) {
	store := newMockStore()
	return NewService(store, DefaultCatalog()), store
}

func TestCreateRoleValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, 1, "  ", "", nil)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateRole(ctx, 1, "Editor", "", []string{"feedback.view", "not.a.permission"})
	require.ErrorIs(t, err, shared.ErrValidation)

	role, err := svc.CreateRole(ctx, 1, "Editor", "triage crew", []string{"feedback.view", "issue.edit"})
	require.NoError(t, err)
	assert.Equal(t, "Editor", role.Name)

	_, err = svc.CreateRole(ctx, 1, "Editor", "", nil)
	require.ErrorIs(t, err, shared.ErrConflict)

	// Same name in another project is fine: uniqueness is per scope.
	_, err = svc.CreateRole(ctx, 2, "Editor", "", nil)
	require.NoError(t, err)
}

func TestRenameRoleConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	editor, err := svc.CreateRole(ctx, 1, "Editor", "", nil)
	require.NoError(t, err)
	_, err = svc.CreateRole(ctx, 1, "Viewer", "", nil)
	require.NoError(t, err)

	_, err = svc.RenameRole(ctx, editor.ID, "Viewer", "")
	require.ErrorIs(t, err, shared.ErrConflict)

	renamed, err := svc.RenameRole(ctx, editor.ID, "Triager", "renamed")
	require.NoError(t, err)
	assert.Equal(t, "Triager", renamed.Name)
}

func TestGrantRevokeIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, 1, "Editor", "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.GrantPermission(ctx, role.ID, "feedback.view"))
	require.NoError(t, svc.GrantPermission(ctx, role.ID, "feedback.view"))
	perms, err := svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, perms.Permissions, 1)

	require.NoError(t, svc.RevokePermission(ctx, role.ID, "feedback.view"))
	require.NoError(t, svc.RevokePermission(ctx, role.ID, "feedback.view"))
	_ = store

	require.ErrorIs(t, svc.GrantPermission(ctx, role.ID, "bogus.permission"), shared.ErrValidation)
}

func TestDeleteRoleBlockedByAssignments(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, 1, "Editor", "", []string{"feedback.view"})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 42, role.ID))

	require.ErrorIs(t, svc.DeleteRole(ctx, role.ID), shared.ErrConflict)

	require.NoError(t, svc.RevokeRole(ctx, 42, role.ID))
	require.NoError(t, svc.DeleteRole(ctx, role.ID))
}

func TestAssignScopedToRoleProject(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, 7, "Editor", "", []string{"feedback.view"})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 42, role.ID))

	perms, err := svc.EffectivePermissions(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"feedback.view"}, perms)

	// The grant must not be visible in a different project scope.
	perms, err = svc.EffectivePermissions(ctx, 42, 8)
	require.NoError(t, err)
	assert.Empty(t, perms)
	_ = store
}

func TestEffectivePermissionsUnionAcrossRoles(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	editor, err := svc.CreateRole(ctx, 1, "Editor", "", []string{"feedback.view", "issue.edit"})
	require.NoError(t, err)
	viewer, err := svc.CreateRole(ctx, 1, "Viewer", "", []string{"feedback.view", "stats.view"})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(ctx, 42, editor.ID))
	require.NoError(t, svc.AssignRole(ctx, 42, viewer.ID))
	// Repeated assignment keeps a single row.
	require.NoError(t, svc.AssignRole(ctx, 42, editor.ID))

	roles, err := svc.ListRolesForUser(ctx, 42, 1)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	perms, err := svc.EffectivePermissions(ctx, 42, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"feedback.view", "issue.edit", "stats.view"}, perms)
}

func TestEffectivePermissionsFoldPlatformScope(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	admin, err := svc.CreateRole(ctx, shared.PlatformScopeID, "Platform Admin", "", []string{shared.PermManageAll})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 1, admin.ID))

	// A platform-scope grant is visible in any project, including one the
	// admin was never assigned a role in.
	perms, err := svc.EffectivePermissions(ctx, 1, 99)
	require.NoError(t, err)
	assert.Contains(t, perms, shared.PermManageAll)

	// Project and platform grants union without duplicates.
	editor, err := svc.CreateRole(ctx, 99, "Editor", "", []string{"feedback.view"})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 1, editor.ID))
	perms, err = svc.EffectivePermissions(ctx, 1, 99)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"feedback.view", shared.PermManageAll}, perms)

	// The fold works one way only: a project grant never surfaces at the
	// platform scope or in a sibling project.
	curator, err := svc.CreateRole(ctx, 7, "Curator", "", []string{"issue.edit"})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 2, curator.ID))
	perms, err = svc.EffectivePermissions(ctx, 2, shared.PlatformScopeID)
	require.NoError(t, err)
	assert.Empty(t, perms)
	perms, err = svc.EffectivePermissions(ctx, 2, 8)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestGuardAllowsPlatformAdminInFreshProject(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	admin, err := svc.CreateRole(ctx, shared.PlatformScopeID, "Platform Admin", "", []string{shared.PermManageAll})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 1, admin.ID))

	guard := &Guard{Source: svc}
	// A freshly created project has no roles or assignments yet; the
	// platform admin must still be able to create the first role there.
	err = guard.Authorize(ctx, 1, shared.Scope{ProjectID: 99}, shared.PermRolesEdit)
	assert.NoError(t, err)

	// A user with no platform grant stays locked out.
	err = guard.Authorize(ctx, 2, shared.Scope{ProjectID: 99}, shared.PermRolesEdit)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}
