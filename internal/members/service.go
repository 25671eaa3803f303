package members

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feedbackhub/feedbackhub/internal/rbac"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const defaultInvitationTTL = 14 * 24 * time.Hour

// RepositoryPort defines data access methods for members and invitations.
type RepositoryPort interface {
	ListMembers(ctx context.Context, projectID int64) ([]Member, error)
	CreateInvitation(ctx context.Context, inv Invitation) (Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (Invitation, error)
	MarkAccepted(ctx context.Context, id int64, at time.Time) error
}

// Assignments is the slice of the rbac service the members module uses.
type Assignments interface {
	GetRole(ctx context.Context, id int64) (rbac.RoleWithPermissions, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	RevokeRole(ctx context.Context, userID, roleID int64) error
	ListRolesForUser(ctx context.Context, userID, projectID int64) ([]rbac.Role, error)
}

// Service handles membership business logic.
type Service struct {
	repo        RepositoryPort
	assignments Assignments
	inviteTTL   time.Duration
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, assignments Assignments) *Service {
	return &Service{repo: repo, assignments: assignments, inviteTTL: defaultInvitationTTL}
}

// ListMembers returns the project's members with aggregated roles.
func (s *Service) ListMembers(ctx context.Context, projectID int64) ([]Member, error) {
	return s.repo.ListMembers(ctx, projectID)
}

// Invite creates an invitation binding an email to an initial role. The role
// must belong to the project being invited into.
func (s *Service) Invite(ctx context.Context, projectID int64, email string, roleID int64) (Invitation, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return Invitation{}, fmt.Errorf("invitation email required: %w", shared.ErrValidation)
	}
	role, err := s.assignments.GetRole(ctx, roleID)
	if err != nil {
		return Invitation{}, err
	}
	if role.ProjectID != projectID {
		return Invitation{}, fmt.Errorf("role %d belongs to another project: %w", roleID, shared.ErrValidation)
	}
	inv := Invitation{
		ProjectID: projectID,
		Email:     email,
		RoleID:    roleID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.inviteTTL),
	}
	return s.repo.CreateInvitation(ctx, inv)
}

// Accept consumes an invitation token on behalf of the signed-in user and
// creates the role assignment. Accepting twice fails with a conflict; the
// assignment itself is idempotent either way.
func (s *Service) Accept(ctx context.Context, token string, userID int64) (Invitation, error) {
	inv, err := s.repo.GetInvitationByToken(ctx, token)
	if err != nil {
		return Invitation{}, err
	}
	if inv.AcceptedAt != nil {
		return Invitation{}, fmt.Errorf("invitation already accepted: %w", shared.ErrConflict)
	}
	now := time.Now()
	if inv.Expired(now) {
		return Invitation{}, fmt.Errorf("invitation expired: %w", shared.ErrValidation)
	}
	if err := s.assignments.AssignRole(ctx, userID, inv.RoleID); err != nil {
		return Invitation{}, err
	}
	if err := s.repo.MarkAccepted(ctx, inv.ID, now); err != nil {
		return Invitation{}, err
	}
	inv.AcceptedAt = &now
	return inv, nil
}

// Grant assigns an additional role to an existing member.
func (s *Service) Grant(ctx context.Context, projectID, userID, roleID int64) error {
	role, err := s.assignments.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.ProjectID != projectID {
		return fmt.Errorf("role %d belongs to another project: %w", roleID, shared.ErrValidation)
	}
	return s.assignments.AssignRole(ctx, userID, roleID)
}

// Revoke removes a member's role. Safe to retry.
func (s *Service) Revoke(ctx context.Context, projectID, userID, roleID int64) error {
	role, err := s.assignments.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.ProjectID != projectID {
		return fmt.Errorf("role %d belongs to another project: %w", roleID, shared.ErrValidation)
	}
	return s.assignments.RevokeRole(ctx, userID, roleID)
}

// RolesOf lists the roles a member holds in the project.
func (s *Service) RolesOf(ctx context.Context, userID, projectID int64) ([]rbac.Role, error) {
	return s.assignments.ListRolesForUser(ctx, userID, projectID)
}
