package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const minPasswordLength = 8

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	SetActive(ctx context.Context, id int64, active bool, at time.Time) error
}

// Service handles user account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser registers a new active account with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, email, name, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" {
		return User{}, fmt.Errorf("email required: %w", shared.ErrValidation)
	}
	if name == "" {
		return User{}, fmt.Errorf("name required: %w", shared.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return User{}, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, User{Email: email, Name: name, PasswordHash: string(hash)})
}

// DeactivateUser disables sign-in for the account. Existing sessions expire on
// their own; the auth layer rejects inactive accounts at login time.
func (s *Service) DeactivateUser(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false, time.Now())
}

// ReactivateUser re-enables a previously disabled account.
func (s *Service) ReactivateUser(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true, time.Now())
}
