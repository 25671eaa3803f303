package channels

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/feedbackhub/feedbackhub/internal/platform/httpx"
	"github.com/feedbackhub/feedbackhub/internal/rbac"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

func init() {
	rbac.RegisterOperation("channels.list", shared.PermChannelView)
	rbac.RegisterOperation("channels.get", shared.PermChannelView)
	rbac.RegisterOperation("channels.create", shared.PermChannelCreate)
	rbac.RegisterOperation("channels.update", shared.PermChannelEdit)
	rbac.RegisterOperation("channels.delete", shared.PermChannelDelete)
}

// Handler manages channel schema endpoints. Routes mount inside the
// project-scoped subtree, so the scope is always present in context.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, audit: audit, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers channel routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("channels.list"))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("channels.get"))
		r.Get("/{channelID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("channels.create"))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("channels.update"))
		r.Put("/{channelID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("channels.delete"))
		r.Delete("/{channelID}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	out, err := h.service.ListChannels(r.Context(), scope.ProjectID)
	if err != nil {
		h.logger.Error("list channels", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"channels": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid channel id")
		return
	}
	ch, err := h.service.GetChannel(r.Context(), scope.ProjectID, id)
	if err != nil {
		h.respondDomainError(w, "get channel", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ch)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req ChannelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ch, err := h.service.CreateChannel(r.Context(), scope.ProjectID, req.Name, req.Description, req.Fields)
	if err != nil {
		h.respondDomainError(w, "create channel", err)
		return
	}
	h.recordAudit(r, "channel.created", ch.ID)
	httpx.JSON(w, http.StatusCreated, ch)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid channel id")
		return
	}
	var req ChannelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ch, err := h.service.UpdateChannel(r.Context(), scope.ProjectID, id, req.Name, req.Description, req.Fields)
	if err != nil {
		h.respondDomainError(w, "update channel", err)
		return
	}
	h.recordAudit(r, "channel.updated", ch.ID)
	httpx.JSON(w, http.StatusOK, ch)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid channel id")
		return
	}
	if err := h.service.DeleteChannel(r.Context(), scope.ProjectID, id); err != nil {
		h.respondDomainError(w, "delete channel", err)
		return
	}
	h.recordAudit(r, "channel.deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, channelID int64) {
	if h.audit == nil {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	var actorID int64
	if sess != nil {
		actorID, _ = strconv.ParseInt(sess.User(), 10, 64)
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "channel",
		EntityID: strconv.FormatInt(channelID, 10),
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
