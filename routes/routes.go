package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/Ashwin12159/Control-Plane/app"
	"github.com/Ashwin12159/Control-Plane/handlers"
	"github.com/Ashwin12159/Control-Plane/internal/observability"
	"github.com/Ashwin12159/Control-Plane/middleware"
	"github.com/Ashwin12159/Control-Plane/utils"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// requestTimeout bounds a whole HTTP request, dispatch included
const requestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CallContext)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	allowedOrigins := []string{"http://localhost:*", "https://*"}
	serviceName := ""
	if deps.Config != nil {
		if len(deps.Config.Server.AllowedOrigins) > 0 {
			allowedOrigins = deps.Config.Server.AllowedOrigins
		}
		serviceName = deps.Config.Observability.ServiceName
	}
	r.Use(observability.HTTPMiddleware(serviceName))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CorrelationIDHeader},
		ExposedHeaders:   []string{"X-Request-ID", middleware.CorrelationIDHeader, "X-Cache"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}
	var cacheChecker handlers.CacheChecker
	if deps.Cache != nil {
		cacheChecker = deps.Cache
	}
	health := handlers.NewHealthHandler(db, cacheChecker, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.AuthMiddleware != nil {
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			if deps.Regions != nil {
				regions := handlers.NewRegionHandler(deps.Regions, deps.Logger)
				r.Get("/api/regions", regions.HandleListRegions)
			}

			if deps.Audit != nil && deps.AuthzMiddleware != nil {
				auditLogs := handlers.NewAuditHandler(deps.Audit, deps.Logger)
				r.With(deps.AuthzMiddleware.RequireSuperAdmin).
					Get("/api/audit-logs", auditLogs.HandleListAuditLogs)
			}

			if deps.Gateway != nil {
				var permissions handlers.PermissionLookup
				if deps.Authz != nil {
					permissions = deps.Authz
				}
				gw := handlers.NewGatewayHandler(deps.Gateway, permissions, deps.Logger)
				r.Route("/api/v1", func(r chi.Router) {
					r.Get("/operations", gw.HandleListOperations)
					r.Post("/{region}/{operation}", gw.HandleOperation)
					r.Get("/{region}/{operation}", gw.HandleOperation)
				})
			}
		})
	}

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
