package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/assetdesk/assetdesk-backend/internal/assets"
	"github.com/assetdesk/assetdesk-backend/internal/assignments"
	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/internal/events"
	"github.com/assetdesk/assetdesk-backend/internal/feed"
	"github.com/assetdesk/assetdesk-backend/internal/users"
	"github.com/assetdesk/assetdesk-backend/pkg/config"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/metrics"
	"github.com/assetdesk/assetdesk-backend/pkg/pubsub"
	"github.com/assetdesk/assetdesk-backend/pkg/redis"
)

// registryResolver mirrors the API wiring: the audit recorder needs an asset
// resolver before the registry service exists.
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
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "feed-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "feed-worker"

	logg = logger.New(logger.Options{
		ServiceName: "feed-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	publisher, err := events.NewPublisher(pubsubClient.EventsPublisher(), logg)
	requireResource(ctx, logg, "events publisher", err)

	meter := metrics.NewPlatformMetrics(prometheus.DefaultRegisterer)

	userService, err := users.NewService(users.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "users service", err)

	registry := &registryResolver{}
	auditRecorder, err := audit.NewRecorder(audit.RecorderParams{
		Repo:        audit.NewRepository(dbClient.DB()),
		Assets:      registry,
		Users:       userService,
		Logger:      logg,
		Metrics:     meter,
		RecentLimit: cfg.Audit.RecentLimit,
	})
	requireResource(ctx, logg, "audit recorder", err)

	assetService, err := assets.NewService(assets.ServiceParams{
		Repo:     assets.NewRepository(dbClient.DB()),
		Recorder: auditRecorder,
		Events:   publisher,
		Logger:   logg,
		Metrics:  meter,
	})
	requireResource(ctx, logg, "assets service", err)
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
	requireResource(ctx, logg, "assignments service", err)

	requireResource(ctx, logg, "user directory load", userService.Load(ctx))
	requireResource(ctx, logg, "asset registry load", assetService.Load(ctx))
	requireResource(ctx, logg, "assignment ledger load", assignmentService.Load(ctx))

	reloaders := map[enums.Resource]feed.Reloader{
		enums.ResourceUsers:       userService,
		enums.ResourceAssets:      assetService,
		enums.ResourceAssignments: assignmentService,
		enums.ResourceAuditLog:    feed.ReloaderFunc(auditRecorder.LoadRecent),
	}
	feedConsumer, err := feed.NewConsumer(pubsubClient.EventsSubscription(), reloaders, logg)
	requireResource(ctx, logg, "feed consumer", err)

	worker, err := NewService(ServiceParams{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		PubSub:       pubsubClient,
		FeedConsumer: feedConsumer,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "feed worker ready")

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "feed worker not working", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
