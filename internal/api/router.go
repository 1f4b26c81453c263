package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nulltasker/nulltasker/internal/api/auth"
	"github.com/nulltasker/nulltasker/internal/api/backupadmin"
	"github.com/nulltasker/nulltasker/internal/api/middleware"
	"github.com/nulltasker/nulltasker/internal/api/projects"
	"github.com/nulltasker/nulltasker/internal/api/settingsapi"
	"github.com/nulltasker/nulltasker/internal/api/tickets"
	"github.com/nulltasker/nulltasker/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Unmatched routes still answer with the JSON envelope. Set before
	// any Route call so subrouters inherit the handlers.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	// Create token service
	tokens := auth.NewTokenService(
		s.config.JWTSecret,
		s.config.AccessTokenTTL,
		s.config.RefreshTokenTTL,
		s.config.RememberMeTTL,
	)

	// Create rate limiters
	loginLimiter := middleware.NewRateLimiter(s.config.LoginRateLimit, s.config.LoginRateWindow)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser, time.Minute)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	authHandler := auth.NewHandler(s.storage, tokens)
	userHandler := users.NewHandler(s.storage)
	projectHandler := projects.NewHandler(s.storage)
	ticketHandler := tickets.NewHandler(s.storage)
	settingsHandler := settingsapi.NewHandler(s.storage)
	backupHandler := backupadmin.NewHandler(s.storage, s.config.BackupDir)

	r.Route("/api", func(r chi.Router) {
		// Auth routes
		r.Route("/auth", func(r chi.Router) {
			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(loginLimiter))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Verify reads the bearer token itself
			r.Post("/verify", authHandler.Verify)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(tokens))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Everything below requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(tokens))
			r.Use(middleware.RateLimitByUser(userLimiter))

			// User self-service
			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Get("/me", userHandler.GetCurrentUser)
				r.Put("/me", userHandler.UpdateCurrentUser)
				r.Put("/me/password", userHandler.ChangePassword)
				r.With(middleware.RequireAdminOrSelf).Get("/{id}", userHandler.GetByID)
			})

			// Projects (read side, membership-filtered)
			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Get("/{id}", projectHandler.GetByID)
			})

			// Tickets
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", ticketHandler.List)
				r.Post("/", ticketHandler.Create)
				r.Get("/{id}", ticketHandler.GetByID)
				r.Put("/{id}", ticketHandler.Update)
				r.Delete("/{id}", ticketHandler.Delete)
			})

			// Application settings
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsHandler.Get)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSystemAdmin)
					r.Put("/", settingsHandler.Update)
				})
			})

			// System admin surface
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireSystemAdmin)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", userHandler.List)
					r.Post("/", userHandler.Create)
					r.Get("/{id}", userHandler.GetByID)
					r.Put("/{id}", userHandler.Update)
					r.Delete("/{id}", userHandler.Delete)
				})

				r.Route("/projects", func(r chi.Router) {
					r.Post("/", projectHandler.Create)
					r.Put("/{id}", projectHandler.Update)
					r.Delete("/{id}", projectHandler.Delete)
					r.Post("/{id}/members", projectHandler.AddMember)
					r.Delete("/{id}/members/{userId}", projectHandler.RemoveMember)
				})

				r.Route("/backup", func(r chi.Router) {
					r.Post("/", backupHandler.Snapshot)
					r.Get("/download/data", backupHandler.DownloadData)
					r.Get("/download/settings", backupHandler.DownloadSettings)
				})
			})
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
