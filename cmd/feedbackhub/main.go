package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/feedbackhub/feedbackhub/internal/apikeys"
	"github.com/feedbackhub/feedbackhub/internal/app"
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

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "feedbackhub_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo, rbac.DefaultCatalog())
	guard := &rbac.Guard{
		// The service folds platform-scope grants into project scopes.
		Source: rbacService,
		Sink: observability.CombineSinks(
			observability.NewDecisionCounter(metrics),
			audit.NewDecisionSink(logger, auditLogger),
		),
		Logger: logger,
	}
	rbacMiddleware := rbac.Middleware{Guard: guard, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, auditLogger, rbacMiddleware)

	projectsRepo := projects.NewRepository(dbpool)
	projectsService := projects.NewService(projectsRepo)
	projectsHandler := projects.NewHandler(logger, projectsService, auditLogger, rbacMiddleware)

	membersRepo := members.NewRepository(dbpool)
	membersService := members.NewService(membersRepo, rbacService)
	membersHandler := members.NewHandler(logger, membersService, auditLogger, rbacMiddleware)

	rolesHandler := roles.NewHandler(logger, rbacService, auditLogger, rbacMiddleware)
	permissionsHandler := rbac.NewPermissionsHandler(rbacService.Catalog(), rbacMiddleware)

	channelsRepo := channels.NewRepository(dbpool)
	channelsService := channels.NewService(channelsRepo)
	channelsHandler := channels.NewHandler(logger, channelsService, auditLogger, rbacMiddleware)

	apikeysRepo := apikeys.NewRepository(dbpool)
	apikeysService := apikeys.NewService(apikeysRepo, channelsService)
	apikeysHandler := apikeys.NewHandler(logger, apikeysService, auditLogger, rbacMiddleware)

	statsCache := stats.NewCache(redisClient, cfg.StatsCacheTTL)
	statsRepo := stats.NewRepository(dbpool)
	statsService := stats.NewService(statsRepo, statsCache)
	statsHandler := stats.NewHandler(logger, statsService, rbacMiddleware)
	go func() {
		if err := statsCache.ListenForInvalidation(ctx, ""); err != nil && ctx.Err() == nil {
			logger.Warn("stats invalidation listener", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	webhooksRepo := webhooks.NewRepository(dbpool)
	webhooksService := webhooks.NewService(webhooksRepo)
	webhooksHandler := webhooks.NewHandler(logger, webhooksService, auditLogger, rbacMiddleware)
	eventSink := webhooks.NewSink(logger, webhooksRepo, jobClient)

	feedbacksRepo := feedbacks.NewRepository(dbpool)
	feedbacksService := feedbacks.NewService(logger, feedbacksRepo, channelsService, eventSink, statsCache)
	feedbacksHandler := feedbacks.NewHandler(logger, feedbacksService, auditLogger, rbacMiddleware)
	intakeHandler := feedbacks.NewPublicHandler(logger, feedbacksService, apikeysService, idempotencyStore, metrics)

	issuesRepo := issues.NewRepository(dbpool)
	issuesService := issues.NewService(logger, issuesRepo, eventSink, statsCache)
	issuesHandler := issues.NewHandler(logger, issuesService, auditLogger, rbacMiddleware)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		ProjectsHandler:    projectsHandler,
		ProjectsService:    projectsService,
		MembersHandler:     membersHandler,
		ChannelsHandler:    channelsHandler,
		APIKeysHandler:     apikeysHandler,
		FeedbacksHandler:   feedbacksHandler,
		IntakeHandler:      intakeHandler,
		IssuesHandler:      issuesHandler,
		StatsHandler:       statsHandler,
		WebhooksHandler:    webhooksHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
