package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/pilahub/queue-backend/internal/adapters/primary/http"
	mw "github.com/pilahub/queue-backend/internal/adapters/primary/http/middleware"
	"github.com/pilahub/queue-backend/internal/adapters/primary/websocket"
	"github.com/pilahub/queue-backend/internal/adapters/secondary/notify"
	"github.com/pilahub/queue-backend/internal/adapters/secondary/postgres"
	"github.com/pilahub/queue-backend/internal/auth"
	"github.com/pilahub/queue-backend/internal/config"
	"github.com/pilahub/queue-backend/internal/core/services"
	"github.com/pilahub/queue-backend/internal/infrastructure/logging"
	"github.com/pilahub/queue-backend/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security, Metrics & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)

	appMetrics := metrics.New()

	hub := websocket.NewHub(logger)
	go hub.Run()
	metrics.RegisterClientGauge(hub.ClientCount)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, strictRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		strictRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.JoinRPS,
			BurstSize:         cfg.RateLimit.JoinBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	ticketRepo := postgres.NewTicketRepository(pool)
	serviceTypeRepo := postgres.NewServiceTypeRepository(pool)

	// Notifier (Secondary Adapter)
	notifier := notify.NewLogNotifier(logger)

	// Services (Core)
	queueService := services.NewQueueService(ticketRepo, serviceTypeRepo, notifier, hub, cfg.Queue.JoinCode)
	catalogService := services.NewCatalogService(serviceTypeRepo, hub)
	statsService := services.NewStatsService(ticketRepo)
	adminAuthService := services.NewAdminAuthService(cfg.Admin.Username, cfg.Admin.PasswordHash)

	// Handlers (Primary Adapters)
	authHandler := httpAdapter.NewAuthHandler(adminAuthService, tokenManager, cfg.Admin.SessionTTL, errorHandler, logger)
	queueHandler := httpAdapter.NewQueueHandler(queueService, catalogService, statsService, errorHandler, appMetrics, logger)
	adminHandler := httpAdapter.NewAdminHandler(queueService, statsService, errorHandler, appMetrics, logger)
	catalogHandler := httpAdapter.NewCatalogHandler(catalogService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(appMetrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// Prometheus scrape endpoint
	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Login gets stricter rate limiting: a legitimate admin only
		// hits it a handful of times.
		r.Group(func(r chi.Router) {
			if strictRateLimiter != nil {
				r.Use(strictRateLimiter.Middleware)
			}
			authHandler.RegisterRoutes(r)
		})

		// Public queue routes; taking a ticket shares the strict limit
		var joinLimiter func(http.Handler) http.Handler
		if strictRateLimiter != nil {
			joinLimiter = strictRateLimiter.Middleware
		}
		queueHandler.RegisterRoutes(r, joinLimiter)

		// WebSocket route (anonymous; clients subscribe after connecting)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			adminHandler.RegisterRoutes(r)
			catalogHandler.RegisterRoutes(r)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	// Let in-flight notification goroutines drain before exiting.
	queueService.Shutdown()

	logger.Info("server shutdown complete")
}
