package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/assetdesk/assetdesk-backend/api/controllers"
	"github.com/assetdesk/assetdesk-backend/api/middleware"
	"github.com/assetdesk/assetdesk-backend/internal/assets"
	"github.com/assetdesk/assetdesk-backend/internal/assignments"
	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/internal/auth"
	"github.com/assetdesk/assetdesk-backend/internal/comments"
	"github.com/assetdesk/assetdesk-backend/internal/users"
	"github.com/assetdesk/assetdesk-backend/pkg/auth/session"
	"github.com/assetdesk/assetdesk-backend/pkg/config"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Health pingers may be nil
// when a dependency is not wired in a given environment.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	SessionChecker session.AccessSessionChecker
	HealthPingers  map[string]controllers.Pinger

	AuthService       auth.Service
	AssetService      assets.Service
	AssignmentService assignments.Service
	UserService       users.Service
	CommentService    comments.Service
	AuditRecorder     audit.Recorder
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.HealthPingers))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).
			Post("/login", controllers.AuthLogin(d.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, d.SessionChecker, logg)).
			Post("/logout", controllers.AuthLogout(d.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.SessionChecker, logg))

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", controllers.AssetList(d.AssetService, logg))
			r.Post("/", controllers.AssetCreate(d.AssetService, logg))
			r.Put("/{assetId}", controllers.AssetUpdate(d.AssetService, logg))
			r.Delete("/{assetId}", controllers.AssetDelete(d.AssetService, logg))
			r.Post("/{assetId}/status", controllers.AssetSetStatus(d.AssetService, logg))

			r.Post("/{assetId}/assign", controllers.AssetAssign(d.AssignmentService, logg))
			r.Post("/{assetId}/return", controllers.AssetReturn(d.AssignmentService, logg))

			r.Route("/{assetId}/comments", func(r chi.Router) {
				r.Get("/", controllers.CommentList(d.CommentService, logg))
				r.Post("/", controllers.CommentCreate(d.CommentService, logg))
			})
		})

		r.Delete("/comments/{commentId}", controllers.CommentDelete(d.CommentService, logg))

		r.Get("/assignments", controllers.AssignmentList(d.AssignmentService, logg))

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", controllers.AuditList(d.AuditRecorder, logg))
			r.Get("/export", controllers.AuditExportCSV(d.AuditRecorder, logg))
			r.With(middleware.RequireRole("admin", logg)).
				Delete("/", controllers.AuditClear(d.AuditRecorder, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UserDirectory(d.UserService, logg))
			r.Get("/{userId}", controllers.UserDetail(d.UserService, logg))
			r.Get("/{userId}/assets", controllers.ViewsUserAssets(d.AssetService, d.AssignmentService, logg))
		})

		r.Route("/views", func(r chi.Router) {
			r.Get("/counts", controllers.ViewsCounts(d.AssetService, logg))
			r.Get("/available", controllers.ViewsAvailable(d.AssetService, logg))
			r.Get("/maintenance", controllers.ViewsMaintenance(d.AssetService, logg))
			r.Get("/holdings", controllers.ViewsHoldings(d.AssetService, d.AssignmentService, d.UserService, logg))
			r.Get("/users-with-assets", controllers.ViewsUsersWithAssets(d.AssignmentService, d.UserService, logg))
		})
	})

	return r
}
