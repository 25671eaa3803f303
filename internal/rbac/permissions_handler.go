package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feedbackhub/feedbackhub/internal/platform/httpx"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

func init() {
	RegisterOperation("permissions.list", shared.PermPermissionsView)
	RegisterOperation("operations.list", shared.PermPermissionsView)
}

// PermissionsHandler exposes the permission catalog and the operation
// requirement table as read-only listings for admin tooling.
type PermissionsHandler struct {
	catalog *Catalog
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(catalog *Catalog, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{catalog: catalog, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("permissions.list"))
		r.Get("/", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("operations.list"))
		r.Get("/operations", h.listOperations)
	})
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": h.catalog.All()})
}

func (h *PermissionsHandler) listOperations(w http.ResponseWriter, r *http.Request) {
	ops := Operations()
	out := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		perms, _ := RequiredPermissions(op)
		out = append(out, map[string]any{"operation": op, "required_permissions": perms})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"operations": out})
}
