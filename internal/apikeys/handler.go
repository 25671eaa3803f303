package apikeys

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
	rbac.RegisterOperation("apikeys.list", shared.PermAPIKeyView)
	rbac.RegisterOperation("apikeys.issue", shared.PermAPIKeyEdit)
	rbac.RegisterOperation("apikeys.revoke", shared.PermAPIKeyEdit)
}

// IssueKeyRequest is the payload for minting a new intake key.
type IssueKeyRequest struct {
	ChannelID int64  `json:"channel_id" validate:"required,gt=0"`
	Label     string `json:"label" validate:"required,min=1,max=200"`
}

// Handler manages API key administration endpoints inside the project scope.
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

// MountRoutes registers API key routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("apikeys.list"))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("apikeys.issue"))
		r.Post("/", h.issue)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("apikeys.revoke"))
		r.Delete("/{keyID}", h.revoke)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	out, err := h.service.ListKeys(r.Context(), scope.ProjectID)
	if err != nil {
		h.logger.Error("list api keys", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"api_keys": out})
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req IssueKeyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	key, err := h.service.IssueKey(r.Context(), scope.ProjectID, req.ChannelID, req.Label)
	if err != nil {
		h.respondDomainError(w, "issue api key", err)
		return
	}
	h.recordAudit(r, "apikey.issued", key.ID)
	httpx.JSON(w, http.StatusCreated, key)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "keyID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid key id")
		return
	}
	if err := h.service.RevokeKey(r.Context(), scope.ProjectID, id); err != nil {
		h.respondDomainError(w, "revoke api key", err)
		return
	}
	h.recordAudit(r, "apikey.revoked", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, keyID int64) {
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
		Entity:   "api_key",
		EntityID: strconv.FormatInt(keyID, 10),
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
