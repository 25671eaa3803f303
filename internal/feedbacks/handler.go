package feedbacks

import (
	"errors"
	"fmt"
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
	rbac.RegisterOperation("feedbacks.list", shared.PermFeedbackView)
	rbac.RegisterOperation("feedbacks.get", shared.PermFeedbackView)
	rbac.RegisterOperation("feedbacks.update", shared.PermFeedbackEdit)
	rbac.RegisterOperation("feedbacks.delete", shared.PermFeedbackEdit)
	rbac.RegisterOperation("feedbacks.export", shared.PermFeedbackExport)
}

// UpdateFeedbackRequest is the payload for editing an entry.
type UpdateFeedbackRequest struct {
	Title string `json:"title" validate:"required,min=1,max=500"`
	Body  string `json:"body" validate:"max=20000"`
}

// Handler manages curation endpoints inside the project scope.
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

// MountRoutes registers feedback curation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("feedbacks.list"))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("feedbacks.get"))
		r.Get("/{feedbackID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("feedbacks.update"))
		r.Put("/{feedbackID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("feedbacks.delete"))
		r.Delete("/{feedbackID}", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOp("feedbacks.export"))
		r.Get("/export", h.exportCSV)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	q := r.URL.Query()
	filter := ListFilter{Query: q.Get("q")}
	filter.ChannelID, _ = strconv.ParseInt(q.Get("channel_id"), 10, 64)
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	items, pagination, err := h.service.ListFeedbacks(r.Context(), scope.ProjectID, filter)
	if err != nil {
		h.logger.Error("list feedbacks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"feedbacks": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "feedbackID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid feedback id")
		return
	}
	fb, err := h.service.GetFeedback(r.Context(), scope.ProjectID, id)
	if err != nil {
		h.respondDomainError(w, "get feedback", err)
		return
	}
	httpx.JSON(w, http.StatusOK, fb)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "feedbackID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid feedback id")
		return
	}
	var req UpdateFeedbackRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	fb, err := h.service.UpdateFeedback(r.Context(), scope.ProjectID, id, req.Title, req.Body)
	if err != nil {
		h.respondDomainError(w, "update feedback", err)
		return
	}
	h.recordAudit(r, "feedback.updated", fb.ID)
	httpx.JSON(w, http.StatusOK, fb)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "feedbackID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid feedback id")
		return
	}
	if err := h.service.DeleteFeedback(r.Context(), scope.ProjectID, id); err != nil {
		h.respondDomainError(w, "delete feedback", err)
		return
	}
	h.recordAudit(r, "feedback.deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	channelID, err := strconv.ParseInt(r.URL.Query().Get("channel_id"), 10, 64)
	if err != nil || channelID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "channel_id required")
		return
	}
	fields, err := h.service.ChannelSchema(r.Context(), scope.ProjectID, channelID)
	if err != nil {
		h.respondDomainError(w, "export feedbacks", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="feedbacks-%d-%d.csv"`, scope.ProjectID, channelID))
	err = WriteFeedbackCSV(w, fields, func(fn func(Feedback) error) error {
		return h.service.StreamFeedbacks(r.Context(), scope.ProjectID, channelID, fn)
	})
	if err != nil {
		// Headers are already on the wire; all we can do is log.
		h.logger.Error("export feedbacks", slog.Any("error", err))
	}
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

func (h *Handler) recordAudit(r *http.Request, action string, feedbackID int64) {
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
		Entity:   "feedback",
		EntityID: strconv.FormatInt(feedbackID, 10),
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
