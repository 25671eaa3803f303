package projects

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/feedbackhub/feedbackhub/internal/shared"
	_ "github.com/feedbackhub/feedbackhub/testing"
)

type stubRepo struct {
	projects map[int64]Project
}

func (s *stubRepo) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubRepo) GetProject(ctx context.Context, id int64) (Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return Project{}, shared.ErrNotFound
	}
	return p, nil
}

func (s *stubRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := s.projects[id]
	return ok, nil
}

func (s *stubRepo) CreateProject(ctx context.Context, name, description string) (Project, error) {
	return Project{}, nil
}

func (s *stubRepo) UpdateProject(ctx context.Context, id int64, name, description string) (Project, error) {
	return Project{}, nil
}

func newScopeRouter(t *testing.T) (chi.Router, *[]shared.Scope) {
	t.Helper()
	service := NewService(&stubRepo{projects: map[int64]Project{7: {ID: 7, Name: "Mobile"}}})

	var seen []shared.Scope
	r := chi.NewRouter()
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Use(ScopeResolver(service, nil))
		r.Get("/feedbacks", func(w http.ResponseWriter, req *http.Request) {
			scope, ok := shared.ScopeFromContext(req.Context())
			if !ok {
				t.Errorf("scope missing from context")
			}
			seen = append(seen, scope)
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r, &seen
}

func TestScopeResolverSetsScope(t *testing.T) {
	router, seen := newScopeRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/projects/7/feedbacks", nil))

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(*seen) != 1 || (*seen)[0].ProjectID != 7 {
		t.Fatalf("expected scope project 7, got %+v", *seen)
	}
}

func TestScopeResolverUnknownProjectFailsClosed(t *testing.T) {
	router, seen := newScopeRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/projects/99/feedbacks", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown project, got %d", res.Code)
	}
	if len(*seen) != 0 {
		t.Fatalf("handler must not run for unknown project")
	}
}

func TestScopeResolverRejectsMalformedID(t *testing.T) {
	router, _ := newScopeRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/projects/abc/feedbacks", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", res.Code)
	}
}
