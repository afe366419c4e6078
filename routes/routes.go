package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/tenant-gateway/app"
	"github.com/upb/tenant-gateway/handlers"
	"github.com/upb/tenant-gateway/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	var sqlDB *sql.DB
	if deps.DB != nil {
		sqlDB = deps.DB.DB
	}

	healthHandler := handlers.NewHealthHandler(sqlDB, deps.Logger)
	recommendationHandler := handlers.NewRecommendationHandler(deps.Recommendations, deps.Logger)
	rateLimitHandler := handlers.NewRateLimitHandler(deps.Limiter, deps.Logger)

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints, outside the auth and rate limit pipeline
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// Everything else goes through the gateway pipeline: identity resolution
	// first, then rate limiting keyed off the resolved identity.
	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.Authenticate)
		r.Use(deps.RateLimitMiddleware.Limit)

		r.Route("/api/v1", func(r chi.Router) {
			// Identity introspection
			r.Route("/identity", func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Get("/", handlers.HandleCurrentIdentity)
			})

			// Tenant-scoped recommendations
			r.Route("/recommendations", func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Get("/", recommendationHandler.HandleList)
				r.Post("/", recommendationHandler.HandleCreate)
				r.Get("/{id}", recommendationHandler.HandleGet)
				r.Put("/{id}", recommendationHandler.HandleUpdate)
				r.With(deps.AuthMiddleware.RequireRole("admin")).Delete("/{id}", recommendationHandler.HandleDelete)
			})

			// Limiter introspection (require admin role)
			r.Route("/ratelimit", func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Use(deps.AuthMiddleware.RequireRole("admin"))
				r.Get("/usage", rateLimitHandler.HandleUsage)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
