package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/feedbackhub/feedbackhub/internal/apikeys"
	"github.com/feedbackhub/feedbackhub/internal/audit"
	"github.com/feedbackhub/feedbackhub/internal/auth"
	"github.com/feedbackhub/feedbackhub/internal/channels"
	"github.com/feedbackhub/feedbackhub/internal/feedbacks"
	"github.com/feedbackhub/feedbackhub/internal/issues"
	"github.com/feedbackhub/feedbackhub/internal/members"
	"github.com/feedbackhub/feedbackhub/internal/observability"
	"github.com/feedbackhub/feedbackhub/internal/projects"
	"github.com/feedbackhub/feedbackhub/internal/rbac"
	"github.com/feedbackhub/feedbackhub/internal/roles"
	"github.com/feedbackhub/feedbackhub/internal/shared"
	"github.com/feedbackhub/feedbackhub/internal/stats"
	"github.com/feedbackhub/feedbackhub/internal/users"
	"github.com/feedbackhub/feedbackhub/internal/webhooks"
	"github.com/feedbackhub/feedbackhub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	ProjectsHandler    *projects.Handler
	ProjectsService    *projects.Service
	MembersHandler     *members.Handler
	ChannelsHandler    *channels.Handler
	APIKeysHandler     *apikeys.Handler
	FeedbacksHandler   *feedbacks.Handler
	IntakeHandler      *feedbacks.PublicHandler
	IssuesHandler      *issues.Handler
	StatsHandler       *stats.Handler
	WebhooksHandler    *webhooks.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		// Platform-scope roles; project roles live under /projects/{projectID}/roles.
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.MembersHandler != nil {
		r.Route("/invitations", params.MembersHandler.MountAcceptRoute)
	}

	scopeResolver := projects.ScopeResolver(params.ProjectsService, params.Logger)
	mountScoped := func(r chi.Router, path string, mount func(chi.Router)) {
		if mount == nil {
			return
		}
		r.Route("/{projectID}"+path, func(r chi.Router) {
			r.Use(scopeResolver)
			mount(r)
		})
	}

	r.Route("/projects", func(r chi.Router) {
		params.ProjectsHandler.MountRoutes(r)
		if params.ChannelsHandler != nil {
			mountScoped(r, "/channels", params.ChannelsHandler.MountRoutes)
		}
		if params.MembersHandler != nil {
			mountScoped(r, "/members", params.MembersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			mountScoped(r, "/roles", params.RolesHandler.MountRoutes)
		}
		if params.APIKeysHandler != nil {
			mountScoped(r, "/apikeys", params.APIKeysHandler.MountRoutes)
		}
		if params.FeedbacksHandler != nil {
			mountScoped(r, "/feedbacks", params.FeedbacksHandler.MountRoutes)
		}
		if params.IssuesHandler != nil {
			mountScoped(r, "/issues", params.IssuesHandler.MountRoutes)
		}
		if params.StatsHandler != nil {
			mountScoped(r, "/stats", params.StatsHandler.MountRoutes)
		}
		if params.WebhooksHandler != nil {
			mountScoped(r, "/webhooks", params.WebhooksHandler.MountRoutes)
		}
	})

	if params.IntakeHandler != nil {
		r.Route("/intake", params.IntakeHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
