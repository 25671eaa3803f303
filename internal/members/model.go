package members

import "time"

// Member is a user together with the roles they hold in one project.
type Member struct {
	UserID   int64    `json:"user_id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	RoleIDs  []int64  `json:"role_ids"`
	Roles    []string `json:"roles"`
	JoinedAt JoinedAt `json:"joined_at"`
}

// JoinedAt is the earliest assignment time for the member in the project.
type JoinedAt = time.Time

// Invitation invites an email address into a project with an initial role.
// Accepting it creates the role assignment.
type Invitation struct {
	ID         int64      `json:"id"`
	ProjectID  int64      `json:"project_id"`
	Email      string     `json:"email"`
	RoleID     int64      `json:"role_id"`
	Token      string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// Expired reports whether the invitation can no longer be accepted.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
