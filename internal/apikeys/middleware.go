package apikeys

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"github.com/feedbackhub/feedbackhub/internal/platform/httpx"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// KeyHeader is the request header carrying the intake credential.
const KeyHeader = "X-Api-Key"

type keyContextKey struct{}

// ContextWithKey stores the authenticated key in the request context.
func ContextWithKey(ctx context.Context, k APIKey) context.Context {
	return context.WithValue(ctx, keyContextKey{}, k)
}

// KeyFromContext retrieves the authenticated key, if present.
func KeyFromContext(ctx context.Context) (APIKey, bool) {
	k, ok := ctx.Value(keyContextKey{}).(APIKey)
	return k, ok
}

// RequireKey authenticates public intake requests by API key. It fails closed:
// missing, unknown, and revoked keys all get 401 before the handler runs.
func RequireKey(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, err := service.Authenticate(r.Context(), r.Header.Get(KeyHeader))
			if err != nil {
				if !errors.Is(err, shared.ErrUnauthenticated) {
					if logger != nil {
						logger.Error("api key lookup", slog.Any("error", err))
					}
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
					return
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "valid API key required")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithKey(r.Context(), k)))
		})
	}
}
