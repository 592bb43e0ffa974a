package routes

import (
	"github.com/framehire/framehire-backend/internal/cache"
	"github.com/framehire/framehire-backend/internal/config"
	"github.com/framehire/framehire-backend/internal/handlers"
	"github.com/framehire/framehire-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	apiLimiter *cache.Limiter,
	authLimiter *cache.Limiter,
	authHandler *handlers.AuthHandler,
	oauthHandler *handlers.OAuthHandler,
	roleHandler *handlers.RoleHandler,
	inviteHandler *handlers.InviteHandler,
	uploadHandler *handlers.UploadHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limit, shared across instances when Redis backs it.
	api.Use(middleware.RateLimit(apiLimiter, "api"))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter limit.
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(authLimiter, "auth"))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/invites/accept", inviteHandler.Accept)

	// Provider flow. The callback is registered for GET (Google, Facebook)
	// and POST (Apple form_post).
	auth.Get("/oauth/:provider", oauthHandler.Authorize)
	auth.Get("/oauth/:provider/callback", oauthHandler.Callback)
	auth.Post("/oauth/:provider/callback", oauthHandler.Callback)

	// Protected routes (JWT required) - apply middleware to individual routes
	// so it does not affect the public auth group.
	api.Get("/me", middleware.JWTProtected(cfg), authHandler.Me)
	api.Get("/me/roles", middleware.JWTProtected(cfg), roleHandler.RoleStatus)
	api.Post("/me/roles", middleware.JWTProtected(cfg), roleHandler.SelectRole)
	api.Delete("/me/providers/:provider", middleware.JWTProtected(cfg), oauthHandler.Unlink)
	api.Post("/uploads", middleware.JWTProtected(cfg), uploadHandler.Upload)

	// Admin invite management (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Post("/invites", inviteHandler.Create)
}
