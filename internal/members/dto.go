package members

type InviteMemberRequest struct {
	Email  string `json:"email" validate:"required,email"`
	RoleID int64  `json:"role_id" validate:"required,gt=0"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" validate:"required,uuid4"`
}

type GrantRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}
