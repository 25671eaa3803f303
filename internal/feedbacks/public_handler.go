package feedbacks

import (
	"errors"
	"net"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/feedbackhub/feedbackhub/internal/apikeys"
	"github.com/feedbackhub/feedbackhub/internal/platform/httpx"
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const (
	// IdempotencyHeader lets submitting clients retry safely.
	IdempotencyHeader = "Idempotency-Key"

	intakeModule         = "feedback_intake"
	intakeRateLimit      = 60
	intakeRatePeriod     = time.Minute
	maxIntakeBodyBytes   = 256 * 1024
	maxIdempotencyKeyLen = 200
)

// SubmitFeedbackRequest is the public intake payload.
type SubmitFeedbackRequest struct {
	Title          string         `json:"title" validate:"required,min=1,max=500"`
	Body           string         `json:"body" validate:"max=20000"`
	SubmitterEmail string         `json:"submitter_email" validate:"omitempty,email"`
	Fields         map[string]any `json:"fields"`
}

// IntakeCounter observes submission outcomes.
type IntakeCounter interface {
	AddIntakeSubmission(outcome string)
}

// PublicHandler serves the unauthenticated intake endpoint. An API key in the
// request header picks the project and channel; no session is involved.
type PublicHandler struct {
	logger      *slog.Logger
	service     *Service
	keys        *apikeys.Service
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
	metrics     IntakeCounter
}

// NewPublicHandler builds PublicHandler instance.
func NewPublicHandler(logger *slog.Logger, service *Service, keys *apikeys.Service, idempotency *shared.IdempotencyStore, metrics IntakeCounter) *PublicHandler {
	return &PublicHandler{
		logger:      logger,
		service:     service,
		keys:        keys,
		idempotency: idempotency,
		validator:   validator.New(),
		metrics:     metrics,
	}
}

func (h *PublicHandler) countOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.AddIntakeSubmission(outcome)
	}
}

// MountRoutes registers the intake route with its rate limit and key check.
func (h *PublicHandler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(intakeRateLimit, intakeRatePeriod, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		if k, ok := apikeys.KeyFromContext(r.Context()); ok {
			return "key:" + k.Key, nil
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	r.Group(func(r chi.Router) {
		r.Use(apikeys.RequireKey(h.keys, h.logger))
		r.Use(limiter)
		r.Post("/feedbacks", h.submit)
	})
}

func (h *PublicHandler) submit(w http.ResponseWriter, r *http.Request) {
	key, ok := apikeys.KeyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "valid API key required")
		return
	}

	idemKey := r.Header.Get(IdempotencyHeader)
	if len(idemKey) > maxIdempotencyKeyLen {
		h.countOutcome("rejected")
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "idempotency key too long")
		return
	}
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, intakeModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				h.countOutcome("duplicate")
				httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			h.countOutcome("error")
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxIntakeBodyBytes)
	var req SubmitFeedbackRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.releaseIdempotencyKey(r, idemKey)
		h.countOutcome("rejected")
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.releaseIdempotencyKey(r, idemKey)
		h.countOutcome("rejected")
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	fb, err := h.service.Submit(r.Context(), key.ProjectID, key.ChannelID, req.Title, req.Body, req.SubmitterEmail, req.Fields)
	if err != nil {
		h.releaseIdempotencyKey(r, idemKey)
		switch {
		case errors.Is(err, shared.ErrValidation):
			h.countOutcome("rejected")
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, shared.ErrNotFound):
			// The key references a channel that no longer exists.
			h.countOutcome("rejected")
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "valid API key required")
		default:
			h.logger.Error("submit feedback", slog.Any("error", err))
			h.countOutcome("error")
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	h.countOutcome("accepted")
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": fb.ID, "created_at": fb.CreatedAt})
}

// releaseIdempotencyKey rolls back the reservation when processing fails so
// the client's retry is not rejected as a duplicate.
func (h *PublicHandler) releaseIdempotencyKey(r *http.Request, key string) {
	if key == "" || h.idempotency == nil {
		return
	}
	if err := h.idempotency.Delete(r.Context(), key); err != nil {
		h.logger.Warn("idempotency rollback", slog.Any("error", err))
	}
}
