package members

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
	rbac.RegisterOperation("members.list", shared.PermMembersView)
	rbac.RegisterOperation("members.invite", shared.PermMembersInvite)
	rbac.RegisterOperation("members.grant", shared.PermMembersEdit)
	rbac.RegisterOperation("members.revoke", shared.PermMembersEdit)
	// Accepting an invitation only needs a signed-in user.
	rbac.RegisterOperation("members.accept")
}

// Handler manages membership endpoints within a project scope.
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

// MountRoutes registers member routes under a project scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("members.list"))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("members.invite"))
		r.Post("/invitations", h.invite)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("members.grant"))
		r.Post("/{userID}/roles", h.grant)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("members.revoke"))
		r.Delete("/{userID}/roles/{roleID}", h.revoke)
	})
}

// MountAcceptRoute registers the invitation acceptance endpoint outside any
// project scope: the token itself carries the project.
func (h *Handler) MountAcceptRoute(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("members.accept"))
		r.Post("/accept", h.accept)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	out, err := h.service.ListMembers(r.Context(), scope.ProjectID)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req InviteMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.Invite(r.Context(), scope.ProjectID, req.Email, req.RoleID)
	if err != nil {
		h.respondDomainError(w, "invite member", err)
		return
	}
	h.recordAudit(r, "member.invited", inv.ID)
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID := currentUserID(r)
	inv, err := h.service.Accept(r.Context(), req.Token, userID)
	if err != nil {
		h.respondDomainError(w, "accept invitation", err)
		return
	}
	h.recordAudit(r, "member.joined", inv.ID)
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req GrantRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Grant(r.Context(), scope.ProjectID, userID, req.RoleID); err != nil {
		h.respondDomainError(w, "grant role", err)
		return
	}
	h.recordAudit(r, "member.role_granted", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	if err := h.service.Revoke(r.Context(), scope.ProjectID, userID, roleID); err != nil {
		h.respondDomainError(w, "revoke role", err)
		return
	}
	h.recordAudit(r, "member.role_revoked", userID)
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

func (h *Handler) recordAudit(r *http.Request, action string, entityID int64) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  currentUserID(r),
		Action:   action,
		Entity:   "member",
		EntityID: strconv.FormatInt(entityID, 10),
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

func currentUserID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
