package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JhostinAleck/asrs/internal/auth"
	"github.com/JhostinAleck/asrs/internal/background"
	"github.com/JhostinAleck/asrs/internal/cache"
	"github.com/JhostinAleck/asrs/internal/config"
	"github.com/JhostinAleck/asrs/internal/database"
	"github.com/JhostinAleck/asrs/internal/handlers"
	middlewareCustom "github.com/JhostinAleck/asrs/internal/middleware"
	"github.com/JhostinAleck/asrs/internal/models"
	"github.com/JhostinAleck/asrs/internal/repositories"
	"github.com/JhostinAleck/asrs/internal/routes"
	"github.com/JhostinAleck/asrs/internal/services"
	pkgauth "github.com/JhostinAleck/asrs/pkg/auth"
	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
	pkglogger "github.com/JhostinAleck/asrs/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Run schema migrations before opening the pool
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := database.RunMigrations(migrateCtx, cfg.Database.DSN()); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize the shared attempt counter store
	counterStore, err := cache.NewRedisCounterStore(cfg.Redis.URL)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer counterStore.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)

	// Initialize cleanup manager for the attempt log
	cleanupManager := background.NewCleanupManager(
		loginAttemptRepo,
		logger,
		cfg.Auth.CleanupInterval,
		cfg.Auth.AttemptRetention,
	)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Failed-login limiter backed by the shared cache
	limiter := services.NewLimiterService(counterStore, services.LimiterConfig{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		Window:            cfg.Auth.AttemptWindow,
	}, logger)

	// Timing delay for the credential failure path
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   200,
		RandomDelayMs: 100,
	})

	// Initialize services
	authService := services.NewAuthService(userRepo, loginAttemptRepo, limiter,
		tokenManager, timingDelay, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger, auditLogger)
	statsService := services.NewStatsService(loginAttemptRepo, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, userService, ipConfig)
	securityHandler := handlers.NewSecurityHandler(statsService)
	userHandler := handlers.NewUserHandler(userService)

	// Bootstrap first staff user if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootstrapCancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, securityHandler, userHandler, tokenManager, userRepo)

	// Health check covers both backing stores
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus, cacheStatus := "up", "up"
		healthy := true
		if err := db.HealthCheck(ctx); err != nil {
			dbStatus = "down"
			healthy = false
		}
		if err := counterStore.Ping(ctx); err != nil {
			cacheStatus = "down"
			healthy = false
		}

		w.Header().Set("Content-Type", "application/json")
		status := "healthy"
		if !healthy {
			status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		fmt.Fprintf(w, `{"status":%q,"database":%q,"cache":%q}`, status, dbStatus, cacheStatus)
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first staff user if ADMIN_USERNAME and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminPassword == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByUsername(ctx, adminUsername)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     adminUsername,
		PasswordHash: hashedPassword,
		IsStaff:      true,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
