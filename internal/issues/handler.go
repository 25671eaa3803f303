package issues

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
	rbac.RegisterOperation("issues.list", shared.PermIssueView)
	rbac.RegisterOperation("issues.get", shared.PermIssueView)
	rbac.RegisterOperation("issues.create", shared.PermIssueEdit)
	rbac.RegisterOperation("issues.update", shared.PermIssueEdit)
	rbac.RegisterOperation("issues.transition", shared.PermIssueEdit)
	rbac.RegisterOperation("issues.link", shared.PermIssueEdit)
}

// IssueRequest is the payload for creating or editing an issue.
type IssueRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=500"`
	Description string `json:"description" validate:"max=20000"`
}

// TransitionRequest is the payload for a status move.
type TransitionRequest struct {
	Status Status `json:"status" validate:"required"`
}

// LinkRequest is the payload for attaching a feedback entry.
type LinkRequest struct {
	FeedbackID int64 `json:"feedback_id" validate:"required,gt=0"`
}

// Handler manages issue triage endpoints inside the project scope.
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

// MountRoutes registers issue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("issues.list"))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("issues.get"))
		r.Get("/{issueID}", h.get)
		r.Get("/{issueID}/feedbacks", h.linkedFeedbacks)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("issues.create"))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("issues.update"))
		r.Put("/{issueID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("issues.transition"))
		r.Post("/{issueID}/status", h.transition)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("issues.link"))
		r.Post("/{issueID}/feedbacks", h.attach)
		r.Delete("/{issueID}/feedbacks/{feedbackID}", h.detach)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status"))}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	items, pagination, err := h.service.ListIssues(r.Context(), scope.ProjectID, filter)
	if err != nil {
		h.respondDomainError(w, "list issues", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"issues": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "issueID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid issue id")
		return
	}
	issue, err := h.service.GetIssue(r.Context(), scope.ProjectID, id)
	if err != nil {
		h.respondDomainError(w, "get issue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, issue)
}

func (h *Handler) linkedFeedbacks(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "issueID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid issue id")
		return
	}
	ids, err := h.service.LinkedFeedbackIDs(r.Context(), scope.ProjectID, id)
	if err != nil {
		h.respondDomainError(w, "list linked feedbacks", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"feedback_ids": ids})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	var req IssueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issue, err := h.service.CreateIssue(r.Context(), scope.ProjectID, req.Title, req.Description)
	if err != nil {
		h.respondDomainError(w, "create issue", err)
		return
	}
	h.recordAudit(r, "issue.created", issue.ID)
	httpx.JSON(w, http.StatusCreated, issue)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "issueID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid issue id")
		return
	}
	var req IssueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issue, err := h.service.UpdateIssue(r.Context(), scope.ProjectID, id, req.Title, req.Description)
	if err != nil {
		h.respondDomainError(w, "update issue", err)
		return
	}
	h.recordAudit(r, "issue.updated", issue.ID)
	httpx.JSON(w, http.StatusOK, issue)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "issueID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid issue id")
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	issue, err := h.service.ChangeStatus(r.Context(), scope.ProjectID, id, req.Status)
	if err != nil {
		h.respondDomainError(w, "transition issue", err)
		return
	}
	h.recordAudit(r, "issue.status_changed", issue.ID)
	httpx.JSON(w, http.StatusOK, issue)
}

func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "issueID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid issue id")
		return
	}
	var req LinkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AttachFeedback(r.Context(), scope.ProjectID, id, req.FeedbackID); err != nil {
		h.respondDomainError(w, "attach feedback", err)
		return
	}
	h.recordAudit(r, "issue.feedback_linked", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) detach(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "issueID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid issue id")
		return
	}
	feedbackID, err := strconv.ParseInt(chi.URLParam(r, "feedbackID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid feedback id")
		return
	}
	if err := h.service.DetachFeedback(r.Context(), scope.ProjectID, id, feedbackID); err != nil {
		h.respondDomainError(w, "detach feedback", err)
		return
	}
	h.recordAudit(r, "issue.feedback_unlinked", id)
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

func (h *Handler) recordAudit(r *http.Request, action string, issueID int64) {
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
		Entity:   "issue",
		EntityID: strconv.FormatInt(issueID, 10),
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
