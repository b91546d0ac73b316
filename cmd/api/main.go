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

	"github.com/prometheus/client_golang/prometheus"

	"wl-portal/internal/auth"
	"wl-portal/internal/cache"
	"wl-portal/internal/config"
	"wl-portal/internal/database"
	"wl-portal/internal/handlers"
	"wl-portal/internal/logger"
	"wl-portal/internal/metrics"
	"wl-portal/internal/middleware"
	"wl-portal/internal/notify"
	"wl-portal/internal/policy"
	"wl-portal/internal/ratelimit"
	"wl-portal/internal/redisclient"
	"wl-portal/internal/repository"
	"wl-portal/internal/scheduler"
	"wl-portal/internal/service"
)

// @title WL Portal API
// @version 1.0
// @description Whitelist application and staff review API for a roleplay community

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	log := logger.Setup(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Pull secrets from Vault before the final validation
	if cfg.Vault.Enabled {
		if err := loadVaultSecrets(cfg); err != nil {
			slog.Error("Failed to load secrets from Vault", "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	if err := database.Migrate(cfg.Database.URL()); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	applicationRepo := repository.NewApplicationRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)

	m := metrics.New(prometheus.DefaultRegisterer)
	detailCache := cache.NewDetailCache(cfg.Cache.Size, cfg.Cache.TTL, m)

	// Notifications run after commit and never block a request
	var dispatcher notify.Dispatcher
	if cfg.Notify.Enabled() {
		dispatcher = notify.NewDiscordDispatcher(&cfg.Notify, &http.Client{Timeout: cfg.Whitelist.NotificationTimeout})
		slog.Info("Discord notifications enabled", "guild_id", cfg.Notify.GuildID)
	} else {
		dispatcher = notify.NewLogDispatcher(log)
		slog.Warn("DISCORD_BOT_TOKEN not set - notifications are only logged")
	}
	notifier := notify.NewAsync(dispatcher, cfg.Whitelist.NotificationTimeout, m, log)

	// Initialize services
	opts := service.DefaultOptions()
	opts.Policy = policy.Policy{MaxAttempts: cfg.Whitelist.MaxAttempts, Cooldown: cfg.Whitelist.Cooldown}
	opts.RequireGuildMember = cfg.Whitelist.RequireGuildMember
	opts.NotesMaxLength = cfg.Whitelist.NotesMaxLength
	opts.AuditIPSalt = cfg.Whitelist.AuditIPSalt
	opts.LockTimeout = cfg.Database.LockTimeout

	serviceOpts := []service.Option{
		service.WithNotifier(notifier),
		service.WithCache(detailCache),
		service.WithMetrics(m),
		service.WithLogger(log),
	}
	applicationService := service.NewApplicationService(applicationRepo, auditRepo, db, opts, serviceOpts...)
	reviewService := service.NewReviewService(applicationRepo, auditRepo, db, opts, serviceOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional; without it rate limits are per instance
	redisClient, err := redisclient.New(ctx, &cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	healthChecks := map[string]handlers.HealthChecker{"database": db}

	var limiterStore ratelimit.Store
	if redisClient != nil {
		defer redisClient.Close()
		healthChecks["redis"] = redisClient
		limiterStore = ratelimit.NewRedisStore(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Duration)
		slog.Info("Redis connection established")
	} else {
		memStore := ratelimit.NewMemoryStore(cfg.RateLimit.Requests, cfg.RateLimit.Duration)
		go cleanupLimiter(ctx, memStore, cfg.RateLimit.Duration)
		limiterStore = memStore
	}

	// Initialize scheduler
	queueScheduler := scheduler.NewScheduler(applicationRepo, &cfg.Scheduler, m, log)
	if err := queueScheduler.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Initialize middleware
	verifier, err := auth.NewVerifier(&cfg.Auth, log)
	if err != nil {
		slog.Error("Failed to initialize token verifier", "error", err)
		os.Exit(1)
	}
	authMw := middleware.NewAuthMiddleware(verifier, &cfg.Auth)
	staffMw := middleware.NewStaffMiddleware(&cfg.Auth)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Enabled, limiterStore, m)
	trustedProxies, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		slog.Error("Invalid trusted proxy configuration", "error", err)
		os.Exit(1)
	}
	realIP := middleware.NewRealIP(trustedProxies)

	// Initialize handlers
	applicationHandler := handlers.NewApplicationHandler(applicationService)
	reviewHandler := handlers.NewReviewHandler(applicationService, reviewService)
	healthHandler := handlers.NewHealthHandler(cfg.App.Version, healthChecks)

	mux := http.NewServeMux()
	registerRoutes(mux, authMw, staffMw, applicationHandler, reviewHandler, healthHandler)

	// Apply global middleware. RealIP sits outside logging so the log line sees
	// the resolved address. Metrics wraps the mux directly so the matched route
	// pattern is visible.
	handler := middleware.RequestID(
		realIP.Handler(
			middleware.LoggingMiddleware(
				middleware.SecurityHeaders(
					corsMw.Handler(
						rateLimiter.Limit(
							middleware.Metrics(m)(mux),
						),
					),
				),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	slog.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	queueScheduler.Stop(shutdownCtx)
	if err := notifier.Wait(shutdownCtx); err != nil {
		slog.Warn("Pending notifications dropped", "error", err)
	}

	slog.Info("Server stopped")
}
