package shared

// PermManageAll is the wildcard capability: holding it satisfies every
// permission check in the scope where it was granted.
const PermManageAll = "manage.all"

// Core platform permissions.
const (
	PermUsersView = "user.view"
	PermUsersEdit = "user.edit"

	PermRolesView = "role.view"
	PermRolesEdit = "role.edit"

	PermPermissionsView = "permission.view"

	PermProjectsView = "project.view"
	PermProjectsEdit = "project.edit"

	PermMembersView   = "member.view"
	PermMembersInvite = "member.invite"
	PermMembersEdit   = "member.edit"

	PermAuditView = "audit.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermProjectsView,
		PermProjectsEdit,
		PermMembersView,
		PermMembersInvite,
		PermMembersEdit,
		PermAuditView,
	}
}
