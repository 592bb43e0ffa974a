package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/framehire/framehire-backend/internal/cache"
	"github.com/framehire/framehire-backend/internal/config"
	"github.com/framehire/framehire-backend/internal/database"
	"github.com/framehire/framehire-backend/internal/email"
	"github.com/framehire/framehire-backend/internal/handlers"
	"github.com/framehire/framehire-backend/internal/logging"
	"github.com/framehire/framehire-backend/internal/middleware"
	"github.com/framehire/framehire-backend/internal/oauth"
	"github.com/framehire/framehire-backend/internal/routes"
	"github.com/framehire/framehire-backend/internal/secrets"
	"github.com/framehire/framehire-backend/internal/services"
	"github.com/framehire/framehire-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}
	cipher, err := secrets.NewCipher(cfg.TokenCipherKey)
	if err != nil {
		slog.Error("TOKEN_CIPHER_KEY is invalid", "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if err := database.SeedRoles(database.DB); err != nil {
		slog.Error("role seeding failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.StdoutHandler(),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Cache: Redis when configured, in-process otherwise.
	var store cache.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		store = cache.NewRedisStore(client, "framehire")
		slog.Info("using redis cache", "addr", cfg.RedisAddr)
	} else {
		memStore := cache.NewMemoryStore()
		defer memStore.Stop()
		store = memStore
		slog.Info("using in-process cache")
	}
	apiLimiter := cache.NewLimiter(store, time.Minute, 60)
	authLimiter := cache.NewLimiter(store, time.Minute, 10)

	// Invite email: SMTP when configured, disabled otherwise.
	var sender email.Sender
	if cfg.SMTPHost != "" {
		smtpSender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPFromName)
		if err != nil {
			slog.Error("smtp configuration invalid", "error", err)
			os.Exit(1)
		}
		sender = smtpSender
	} else {
		sender = email.NewDisabledSender("SMTP_HOST not set")
	}

	// Object storage is optional; uploads 503 without it.
	var uploader *storage.Uploader
	if cfg.StorageEndpoint != "" {
		uploader, err = storage.NewUploader(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket, cfg.StoragePublicURL, cfg.StorageUseSSL)
		if err != nil {
			slog.Error("storage configuration invalid", "error", err)
			os.Exit(1)
		}
	}

	// OAuth providers
	providers := map[string]oauth.Provider{
		"google":   oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		"facebook": oauth.NewFacebookProvider(cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.FacebookRedirectURL),
		"apple":    oauth.NewAppleProvider(cfg.AppleClientID, cfg.AppleRedirectURL),
	}

	// Services
	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	authService := services.NewAuthService(database.DB, tokenService)
	oauthService := services.NewOAuthService(database.DB, tokenService, cipher)
	roleService := services.NewRoleService(database.DB, tokenService)
	inviteService := services.NewInviteService(database.DB, roleService, sender, cfg.FrontendURL, cfg.InviteExpiry)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	oauthHandler := handlers.NewOAuthHandler(providers, oauthService, store, cfg)
	roleHandler := handlers.NewRoleHandler(roleService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	uploadHandler := handlers.NewUploadHandler(uploader)
	healthHandler := handlers.NewHealthHandler()

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    25 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, apiLimiter, authLimiter, authHandler, oauthHandler, roleHandler, inviteHandler, uploadHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
