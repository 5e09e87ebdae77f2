package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/assetdesk/assetdesk-backend/api/controllers"
	"github.com/assetdesk/assetdesk-backend/api/routes"
	"github.com/assetdesk/assetdesk-backend/internal/assets"
	"github.com/assetdesk/assetdesk-backend/internal/assignments"
	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/internal/auth"
	"github.com/assetdesk/assetdesk-backend/internal/comments"
	"github.com/assetdesk/assetdesk-backend/internal/events"
	"github.com/assetdesk/assetdesk-backend/internal/users"
	"github.com/assetdesk/assetdesk-backend/pkg/auth/session"
	"github.com/assetdesk/assetdesk-backend/pkg/config"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/metrics"
	"github.com/assetdesk/assetdesk-backend/pkg/migrate"
	"github.com/assetdesk/assetdesk-backend/pkg/pubsub"
	"github.com/assetdesk/assetdesk-backend/pkg/redis"
)

// registryResolver breaks the construction cycle between the audit recorder
// and the asset registry. The recorder needs a resolver before the registry
// exists; the registry needs the recorder. Lookups before bind report the
// asset as unknown, which the recorder already tolerates.
type registryResolver struct {
	inner audit.AssetResolver
}

func (r *registryResolver) AssetByID(id uuid.UUID) (models.Asset, bool) {
	if r.inner == nil {
		return models.Asset{}, false
	}
	return r.inner.AssetByID(id)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	publisher, err := events.NewPublisher(pubsubClient.EventsPublisher(), logg)
	if err != nil {
		logg.Error(ctx, "failed to create events publisher", err)
		os.Exit(1)
	}

	meter := metrics.NewPlatformMetrics(prometheus.DefaultRegisterer)

	userService, err := users.NewService(users.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	registry := &registryResolver{}
	auditRecorder, err := audit.NewRecorder(audit.RecorderParams{
		Repo:        audit.NewRepository(dbClient.DB()),
		Assets:      registry,
		Users:       userService,
		Logger:      logg,
		Metrics:     meter,
		RecentLimit: cfg.Audit.RecentLimit,
	})
	if err != nil {
		logg.Error(ctx, "failed to create audit recorder", err)
		os.Exit(1)
	}

	assetService, err := assets.NewService(assets.ServiceParams{
		Repo:     assets.NewRepository(dbClient.DB()),
		Recorder: auditRecorder,
		Events:   publisher,
		Logger:   logg,
		Metrics:  meter,
	})
	if err != nil {
		logg.Error(ctx, "failed to create assets service", err)
		os.Exit(1)
	}
	registry.inner = assetService

	assignmentService, err := assignments.NewService(assignments.ServiceParams{
		Repo:     assignments.NewRepository(dbClient.DB()),
		Registry: assetService,
		Users:    userService,
		Recorder: auditRecorder,
		Events:   publisher,
		Logger:   logg,
		Metrics:  meter,
	})
	if err != nil {
		logg.Error(ctx, "failed to create assignments service", err)
		os.Exit(1)
	}

	commentService, err := comments.NewService(comments.ServiceParams{
		Repo:    comments.NewRepository(dbClient.DB()),
		Assets:  assetService,
		Events:  publisher,
		Logger:  logg,
		Metrics: meter,
	})
	if err != nil {
		logg.Error(ctx, "failed to create comments service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	if err := userService.Load(ctx); err != nil {
		logg.Error(ctx, "failed to load user directory", err)
		os.Exit(1)
	}
	if err := assetService.Load(ctx); err != nil {
		logg.Error(ctx, "failed to load asset registry", err)
		os.Exit(1)
	}
	if err := assignmentService.Load(ctx); err != nil {
		logg.Error(ctx, "failed to load assignment ledger", err)
		os.Exit(1)
	}
	if err := auditRecorder.LoadRecent(ctx); err != nil {
		// The audit table may not be provisioned yet. Recording stays
		// best-effort either way.
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "audit log unavailable at startup")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			Redis:          redisClient,
			SessionChecker: sessionManager,
			HealthPingers: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"pubsub":   pubsubClient,
			},
			AuthService:       authService,
			AssetService:      assetService,
			AssignmentService: assignmentService,
			UserService:       userService,
			CommentService:    commentService,
			AuditRecorder:     auditRecorder,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
