package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// RepositoryPort defines data access methods for projects.
type RepositoryPort interface {
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	Exists(ctx context.Context, id int64) (bool, error)
	CreateProject(ctx context.Context, name, description string) (Project, error)
	UpdateProject(ctx context.Context, id int64, name, description string) (Project, error)
}

// Service handles project business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListProjects returns all projects.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	return s.repo.ListProjects(ctx)
}

// GetProject fetches a project.
func (s *Service) GetProject(ctx context.Context, id int64) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// Exists reports whether the project exists.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// CreateProject validates and inserts a project.
func (s *Service) CreateProject(ctx context.Context, name, description string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, fmt.Errorf("project name required: %w", shared.ErrValidation)
	}
	return s.repo.CreateProject(ctx, name, strings.TrimSpace(description))
}

// UpdateProject validates and updates a project.
func (s *Service) UpdateProject(ctx context.Context, id int64, name, description string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, fmt.Errorf("project name required: %w", shared.ErrValidation)
	}
	return s.repo.UpdateProject(ctx, id, name, strings.TrimSpace(description))
}
