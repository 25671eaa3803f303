package roles

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
	rbac.RegisterOperation("roles.list", shared.PermRolesView)
	rbac.RegisterOperation("roles.get", shared.PermRolesView)
	rbac.RegisterOperation("roles.create", shared.PermRolesEdit)
	rbac.RegisterOperation("roles.update", shared.PermRolesEdit)
	rbac.RegisterOperation("roles.delete", shared.PermRolesEdit)
	rbac.RegisterOperation("roles.grant_permission", shared.PermRolesEdit)
	rbac.RegisterOperation("roles.revoke_permission", shared.PermRolesEdit)
}

// Handler manages role endpoints. The same handler serves the platform scope
// and each project scope; the active scope decides which roles are visible.
type Handler struct {
	logger    *slog.Logger
	service   *rbac.Service
	audit     *shared.AuditLogger
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *rbac.Service, audit *shared.AuditLogger, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, audit: audit, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("roles.list"))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("roles.get"))
		r.Get("/{roleID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("roles.create"))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("roles.update"))
		r.Put("/{roleID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("roles.delete"))
		r.Delete("/{roleID}", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("roles.grant_permission"))
		r.Post("/{roleID}/permissions", h.grantPermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("roles.revoke_permission"))
		r.Delete("/{roleID}/permissions/{permission}", h.revokePermission)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	out, err := h.service.ListRoles(r.Context(), scope.ProjectID)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	role, ok := h.scopedRole(w, r)
	if !ok {
		return
	}
	out, err := h.service.GetRole(r.Context(), role.ID)
	if err != nil {
		h.respondDomainError(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req CreateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), scope.ProjectID, req.Name, req.Description, req.Permissions)
	if err != nil {
		h.respondDomainError(w, "create role", err)
		return
	}
	h.recordAudit(r, "role.created", role.ID)
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	role, ok := h.scopedRole(w, r)
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.RenameRole(r.Context(), role.ID, req.Name, req.Description)
	if err != nil {
		h.respondDomainError(w, "update role", err)
		return
	}
	h.recordAudit(r, "role.updated", updated.ID)
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	role, ok := h.scopedRole(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), role.ID); err != nil {
		h.respondDomainError(w, "delete role", err)
		return
	}
	h.recordAudit(r, "role.deleted", role.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	role, ok := h.scopedRole(w, r)
	if !ok {
		return
	}
	var req PermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.GrantPermission(r.Context(), role.ID, req.Permission); err != nil {
		h.respondDomainError(w, "grant permission", err)
		return
	}
	h.recordAudit(r, "role.permission_granted", role.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	role, ok := h.scopedRole(w, r)
	if !ok {
		return
	}
	permission := chi.URLParam(r, "permission")
	if err := h.service.RevokePermission(r.Context(), role.ID, permission); err != nil {
		h.respondDomainError(w, "revoke permission", err)
		return
	}
	h.recordAudit(r, "role.permission_revoked", role.ID)
	w.WriteHeader(http.StatusNoContent)
}

// scopedRole loads the path role and hides roles from other scopes as 404.
func (h *Handler) scopedRole(w http.ResponseWriter, r *http.Request) (rbac.Role, bool) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return rbac.Role{}, false
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, "load role", err)
		return rbac.Role{}, false
	}
	if role.ProjectID != scope.ProjectID {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		return rbac.Role{}, false
	}
	return role.Role, true
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

func (h *Handler) recordAudit(r *http.Request, action string, roleID int64) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  currentUserID(r),
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
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
