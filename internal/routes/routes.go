package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/JhostinAleck/asrs/internal/auth"
	"github.com/JhostinAleck/asrs/internal/handlers"
	"github.com/JhostinAleck/asrs/internal/middleware"
	"github.com/JhostinAleck/asrs/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	securityHandler *handlers.SecurityHandler,
	userHandler *handlers.UserHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes. The request-volume limiter here is independent of the
	// failed-login limiter inside the service.
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/refresh", authHandler.RefreshToken)

	// The gateway calls this on every proxied request; the handler does its
	// own token check so no middleware is needed. Both methods are accepted
	// because nginx auth_request subrequests preserve the original method.
	router.Get("/auth/validate", authHandler.Validate)
	router.Post("/auth/validate", authHandler.Validate)

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/auth/profile", authHandler.Profile)

		// Staff-only monitoring and account management
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireStaff(userRepo))

			r.Get("/auth/stats", securityHandler.Stats)
			r.Get("/auth/attempts", securityHandler.Attempts)

			r.Get("/users", userHandler.ListUsers)
			r.Post("/users", userHandler.CreateUser)
			r.Get("/users/{id}", userHandler.GetUser)
			r.Post("/users/{id}/block", userHandler.BlockUser)
			r.Post("/users/{id}/unblock", userHandler.UnblockUser)
		})
	})
}
