package rbac

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/feedbackhub/feedbackhub/internal/platform/httpx"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// Middleware wires the guard into HTTP handlers. The scope is taken from the
// request context (set by the project scope resolver); requests outside a
// project route evaluate against the platform-wide scope.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger
}

// RequireAny ensures the current user holds at least one of the required
// permissions in the active scope.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, false)
}

// RequireAll ensures the current user holds every required permission. This
// is the explicit conjunctive opt-in; RequireAny is the default.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, true)
}

// RequireOp gates a handler by a registered operation declaration.
func (m Middleware) RequireOp(op string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perms, ok := RequiredPermissions(op)
			if !ok {
				if m.Logger != nil {
					m.Logger.Error("rbac unknown operation", slog.String("operation", op))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			m.check(w, r, next, perms, false)
		})
	}
}

func (m Middleware) require(perms []string, all bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.check(w, r, next, perms, all)
		})
	}
}

func (m Middleware) check(w http.ResponseWriter, r *http.Request, next http.Handler, perms []string, all bool) {
	userID, _ := m.currentUserID(r)
	scope, _ := shared.ScopeFromContext(r.Context())

	var err error
	if all {
		err = m.Guard.AuthorizeAll(r.Context(), userID, scope, perms...)
	} else {
		err = m.Guard.Authorize(r.Context(), userID, scope, perms...)
	}
	switch {
	case err == nil:
		next.ServeHTTP(w, r)
	case errors.Is(err, shared.ErrUnauthenticated):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
	case errors.Is(err, shared.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing required permission")
	default:
		if m.Logger != nil {
			m.Logger.Error("rbac authorize", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
