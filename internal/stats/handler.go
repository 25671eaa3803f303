package stats

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/feedbackhub/feedbackhub/internal/platform/httpx"
	"github.com/feedbackhub/feedbackhub/internal/rbac"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

func init() {
	rbac.RegisterOperation("stats.overview", shared.PermStatsView)
	rbac.RegisterOperation("stats.daily", shared.PermStatsView)
}

// Handler serves dashboard aggregates inside the project scope.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers stats routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("stats.overview"))
		r.Get("/overview", h.overview)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("stats.daily"))
		r.Get("/daily", h.daily)
	})
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	out, err := h.service.Overview(r.Context(), scope.ProjectID)
	if err != nil {
		h.logger.Error("stats overview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	out, err := h.service.Daily(r.Context(), scope.ProjectID, days)
	if err != nil {
		if errors.Is(err, shared.ErrValidation) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("stats daily", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"days": out})
}
