package projects

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/feedbackhub/feedbackhub/internal/platform/httpx"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// ScopeResolver resolves the {projectID} path parameter into the request
// scope. Unknown projects fail closed with 404 before any authorization
// middleware runs; there is no fallback to the platform-wide scope.
func ScopeResolver(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := chi.URLParam(r, "projectID")
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown project")
				return
			}
			exists, err := service.Exists(r.Context(), id)
			if err != nil {
				if logger != nil {
					logger.Error("resolve project scope", slog.Any("error", err), slog.Int64("project_id", id))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !exists {
				httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown project")
				return
			}
			ctx := shared.ContextWithScope(r.Context(), shared.Scope{ProjectID: id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
