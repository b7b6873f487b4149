package rest

import (
	"net/http"
	"os"
	"strings"

	"github.com/campusbook/scheduling-engine/internal/api/rest/handlers"
	customMiddleware "github.com/campusbook/scheduling-engine/internal/api/rest/middleware"
	"github.com/campusbook/scheduling-engine/internal/services"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router holds the HTTP router and dependencies
type Router struct {
	router      *chi.Mux
	logger      *logger.Logger
	handlers    *handlers.Handlers
	authService *services.AuthService
	metrics     *metrics.Metrics
	rateRPS     float64
	rateBurst   int
}

// NewRouter creates a new HTTP router
func NewRouter(log *logger.Logger, h *handlers.Handlers, authService *services.AuthService, m *metrics.Metrics, rateRPS float64, rateBurst int) *Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Metrics middleware
	r.Use(customMiddleware.Metrics(m))

	// Security middleware
	r.Use(customMiddleware.SecurityHeaders())
	r.Use(customMiddleware.RequestSizeLimit(customMiddleware.GetMaxRequestSize()))

	// CORS - Configure allowed origins from environment
	allowedOrigins := []string{"http://localhost:3000"} // Default for development
	if originsEnv := os.Getenv("ALLOWED_ORIGINS"); originsEnv != "" {
		allowedOrigins = strings.Split(originsEnv, ",")
		// Trim whitespace from each origin
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	}

	// Security: Never allow "*" with credentials enabled
	allowCredentials := true
	for _, origin := range allowedOrigins {
		if origin == "*" {
			log.Warn("CORS: Wildcard origin '*' detected with credentials enabled. Disabling credentials for security.")
			allowCredentials = false
			break
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}))

	return &Router{
		router:      r,
		logger:      log,
		handlers:    h,
		authService: authService,
		metrics:     m,
		rateRPS:     rateRPS,
		rateBurst:   rateBurst,
	}
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes() {
	// Prometheus metrics endpoint (no auth required)
	r.router.Handle("/metrics", promhttp.Handler())

	// Health endpoints (no auth required)
	r.router.Get("/health", r.handlers.Health.Health)
	r.router.Get("/ready", r.handlers.Health.Ready)

	// API v1
	r.router.Route("/api/v1", func(router chi.Router) {
		// Auth endpoints (public)
		router.Route("/auth", func(router chi.Router) {
			router.Post("/register", r.handlers.Auth.Register)
			router.Post("/login", r.handlers.Auth.Login)
			router.Post("/refresh", r.handlers.Auth.RefreshToken)
			router.Post("/logout", r.handlers.Auth.Logout)

			// Protected auth endpoints (require authentication)
			router.Group(func(router chi.Router) {
				router.Use(customMiddleware.JWTAuth(r.authService, r.logger))
				router.Get("/me", r.handlers.Auth.Me)
				router.Post("/change-password", r.handlers.Auth.ChangePassword)
				router.Post("/api-keys", r.handlers.Auth.CreateAPIKey)
				router.Delete("/api-keys/{id}", r.handlers.Auth.RevokeAPIKey)
			})
		})

		// Protected routes (require authentication)
		router.Group(func(router chi.Router) {
			// Apply optional auth (JWT or API key)
			router.Use(customMiddleware.OptionalAuth(r.authService, r.logger))

			// Apply per-user rate limiting
			router.Use(customMiddleware.RateLimitWithConfig(r.rateRPS, r.rateBurst, r.logger))

			// Resources
			router.Route("/resources", func(router chi.Router) {
				router.With(customMiddleware.RequirePermission("resource:read", r.logger)).Get("/", r.handlers.Resource.List)
				router.With(customMiddleware.RequirePermission("resource:read", r.logger)).Get("/types", r.handlers.Resource.ListTypes)
				router.With(customMiddleware.RequirePermission("resource:read", r.logger)).Get("/{id}", r.handlers.Resource.Get)
				router.With(customMiddleware.RequirePermission("resource:read", r.logger)).Get("/{id}/availability", r.handlers.Resource.CheckAvailability)
				router.With(customMiddleware.RequirePermission("resource:read", r.logger)).Get("/{id}/reservations", r.handlers.Resource.ListReservations)

				router.With(customMiddleware.RequirePermission("resource:manage", r.logger)).Post("/", r.handlers.Resource.Create)
				router.With(customMiddleware.RequirePermission("resource:manage", r.logger)).Put("/{id}", r.handlers.Resource.Update)
				router.With(customMiddleware.RequirePermission("resource:manage", r.logger)).Delete("/{id}", r.handlers.Resource.Delete)
				router.With(customMiddleware.RequirePermission("resource:manage", r.logger)).Post("/{id}/enable", r.handlers.Resource.SetEnabled(true))
				router.With(customMiddleware.RequirePermission("resource:manage", r.logger)).Post("/{id}/disable", r.handlers.Resource.SetEnabled(false))
			})

			// Reservations
			router.Route("/reservations", func(router chi.Router) {
				router.With(customMiddleware.RequirePermission("reservation:read", r.logger)).Get("/", r.handlers.Reservation.ListMine)
				router.With(customMiddleware.RequirePermission("reservation:read", r.logger)).Get("/{id}", r.handlers.Reservation.Get)
				router.With(customMiddleware.RequirePermission("reservation:read", r.logger)).Get("/{id}/approval", r.handlers.Approval.GetByReservation)
				router.With(customMiddleware.RequirePermission("reservation:read", r.logger)).Get("/series/{id}", r.handlers.Reservation.ListSeries)

				router.With(customMiddleware.RequirePermission("reservation:create", r.logger)).Post("/", r.handlers.Reservation.Create)
				router.With(customMiddleware.RequirePermission("reservation:cancel", r.logger)).Delete("/{id}", r.handlers.Reservation.Cancel)
			})

			// Approvals
			router.Route("/approvals", func(router chi.Router) {
				router.With(customMiddleware.RequirePermission("approval:read", r.logger)).Get("/", r.handlers.Approval.List)
				router.With(customMiddleware.RequirePermission("approval:read", r.logger)).Get("/{id}", r.handlers.Approval.Get)
				router.With(customMiddleware.RequirePermission("approval:act", r.logger)).Post("/{id}/actions", r.handlers.Approval.Act)
			})

			// Role and permission administration
			router.Route("/roles", func(router chi.Router) {
				router.With(customMiddleware.RequirePermission("role:read", r.logger)).Get("/", r.handlers.Admin.ListRoles)
				router.With(customMiddleware.RequirePermission("role:read", r.logger)).Get("/{id}", r.handlers.Admin.GetRole)
			})
			router.With(customMiddleware.RequirePermission("role:read", r.logger)).Get("/permissions", r.handlers.Admin.ListPermissions)
			router.Route("/users", func(router chi.Router) {
				router.With(customMiddleware.RequirePermission("user:read", r.logger)).Get("/", r.handlers.Admin.ListUsers)
				router.With(customMiddleware.RequirePermission("role:assign", r.logger)).Post("/{id}/roles", r.handlers.Admin.AssignRole)
				router.With(customMiddleware.RequirePermission("role:assign", r.logger)).Delete("/{id}/roles/{role}", r.handlers.Admin.RemoveRole)
			})

			// Approval flows (admin-managed reference data)
			router.Route("/flows", func(router chi.Router) {
				router.With(customMiddleware.RequirePermission("flow:read", r.logger)).Get("/", r.handlers.Flow.List)
				router.With(customMiddleware.RequirePermission("flow:read", r.logger)).Get("/{id}", r.handlers.Flow.Get)
				router.With(customMiddleware.RequireAnyRole([]string{"admin"}, r.logger)).Post("/", r.handlers.Flow.Create)
				router.With(customMiddleware.RequireAnyRole([]string{"admin"}, r.logger)).Delete("/{id}", r.handlers.Flow.Delete)
			})
		})
	})
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.router
}
