package rbac_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feedbackhub/feedbackhub/internal/rbac"
	"github.com/feedbackhub/feedbackhub/internal/shared"
	_ "github.com/feedbackhub/feedbackhub/testing"
)

type staticSource struct {
	perms map[[2]int64][]string
}

func (s *staticSource) EffectivePermissions(ctx context.Context, userID, projectID int64) ([]string, error) {
	return s.perms[[2]int64{userID, projectID}], nil
}

func newRequest(t *testing.T, userID string, scope shared.Scope) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/feedbacks", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = shared.ContextWithScope(ctx, scope)
	return req.WithContext(ctx)
}

func newMiddleware() rbac.Middleware {
	source := &staticSource{perms: map[[2]int64][]string{
		{1, 10}: {"feedback.view"},
	}}
	return rbac.Middleware{Guard: &rbac.Guard{Source: source}}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAnyAllows(t *testing.T) {
	mw := newMiddleware()
	handler := mw.RequireAny("feedback.view", "channel.edit")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newRequest(t, "1", shared.Scope{ProjectID: 10}))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestRequireAnyAnonymousGets401(t *testing.T) {
	mw := newMiddleware()
	handler := mw.RequireAny("feedback.view")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newRequest(t, "", shared.Scope{ProjectID: 10}))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", res.Code)
	}
}

func TestRequireAnyInsufficientGets403(t *testing.T) {
	mw := newMiddleware()
	handler := mw.RequireAny("channel.edit")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newRequest(t, "1", shared.Scope{ProjectID: 10}))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing permission, got %d", res.Code)
	}
}

func TestScopeIsolationAcrossProjects(t *testing.T) {
	mw := newMiddleware()
	handler := mw.RequireAny("feedback.view")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newRequest(t, "1", shared.Scope{ProjectID: 20}))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 in foreign scope, got %d", res.Code)
	}
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	mw := newMiddleware()
	handler := mw.RequireAll("feedback.view", "channel.edit")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newRequest(t, "1", shared.Scope{ProjectID: 10}))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for partial permissions, got %d", res.Code)
	}
}

func TestRequireOpUsesRegistry(t *testing.T) {
	rbac.RegisterOperation("test.feedbacks.list", "feedback.view")
	mw := newMiddleware()
	handler := mw.RequireOp("test.feedbacks.list")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newRequest(t, "1", shared.Scope{ProjectID: 10}))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 via registry, got %d", res.Code)
	}
}

func TestRequireOpUnknownOperationFailsClosed(t *testing.T) {
	mw := newMiddleware()
	handler := mw.RequireOp("test.never.registered")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, newRequest(t, "1", shared.Scope{ProjectID: 10}))
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unknown operation, got %d", res.Code)
	}
}
