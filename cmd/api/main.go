package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/campusbook/scheduling-engine/internal/api/rest"
	"github.com/campusbook/scheduling-engine/internal/api/rest/handlers"
	"github.com/campusbook/scheduling-engine/internal/approval"
	"github.com/campusbook/scheduling-engine/internal/repository/postgres"
	"github.com/campusbook/scheduling-engine/internal/scheduling"
	"github.com/campusbook/scheduling-engine/internal/services"
	"github.com/campusbook/scheduling-engine/internal/workers"
	"github.com/campusbook/scheduling-engine/pkg/auth"
	"github.com/campusbook/scheduling-engine/pkg/config"
	"github.com/campusbook/scheduling-engine/pkg/database"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	logger.SetDefault(log)
	log.Info("Starting Scheduling Engine API",
		logger.String("version", cfg.App.Version),
		logger.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL
	db, err := database.NewPostgresDB(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Run schema migrations
	if err := db.Migrate("migrations", log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize Redis
	redis, err := database.NewRedisClient(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redis.Close()

	// Initialize metrics
	m := metrics.New()

	// Initialize repositories
	reservationRepo := postgres.NewReservationRepository(db.DB)
	resourceRepo := postgres.NewResourceRepository(db.DB)
	flowRepo := postgres.NewFlowRepository(db.DB)
	approvalRepo := postgres.NewApprovalRepository(db.DB)
	userRepo := postgres.NewUserRepository(db.DB)
	roleRepo := postgres.NewRoleRepository(db.DB)
	permissionRepo := postgres.NewPermissionRepository(db.DB)
	apiKeyRepo := postgres.NewAPIKeyRepository(db.DB)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db.DB)

	// Initialize notification service
	notificationService, err := services.NewNotificationService(&cfg.Notification, m, log)
	if err != nil {
		return fmt.Errorf("failed to initialize notification service: %w", err)
	}

	// Initialize the in-memory conflict index and scheduling engines
	index := scheduling.NewSortedIndex()
	availability := scheduling.NewAvailabilityEngine(index, log)
	coordinator := scheduling.NewCoordinator(
		index,
		availability,
		reservationRepo,
		resourceRepo,
		notificationService,
		log,
		scheduling.RetryPolicy{
			Attempts: cfg.Booking.RetryAttempts,
			Backoff:  cfg.Booking.RetryBackoff,
		},
	)

	// Flow configurations are cached in Redis
	flowCache := services.NewFlowCacheService(flowRepo, redis, m, log, cfg.Redis.FlowTTL)

	// Initialize the approval workflow engine
	approvalEngine := approval.NewEngine(
		approvalRepo,
		flowCache,
		userRepo,
		reservationRepo,
		resourceRepo,
		notificationService,
		log,
	).WithAdminRoles(cfg.Auth.AdminRoles)

	approvalService := services.NewApprovalService(approvalEngine, approvalRepo, m, log)

	bookingService := services.NewBookingService(
		coordinator,
		availability,
		index,
		reservationRepo,
		resourceRepo,
		flowCache,
		approvalService,
		m,
		log,
	)

	// Warm the conflict index before accepting traffic
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout)
	err = bookingService.WarmIndex(warmCtx)
	cancelWarm()
	if err != nil {
		return fmt.Errorf("failed to warm conflict index: %w", err)
	}

	// Initialize JWT manager
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		// Config validation rejects this in production
		jwtSecret = "default-secret-change-this-in-production"
		log.Warn("JWT_SECRET not set, using default (INSECURE - only for development)")
	}
	jwtManager := auth.NewJWTManagerWithTTL(jwtSecret, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL)

	authService := services.NewAuthService(userRepo, apiKeyRepo, refreshTokenRepo, jwtManager, log)

	// Start background workers
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	sweepWorker := workers.NewApprovalSweepWorker(approvalService, m, log, cfg.Workers.ApprovalSweepInterval)
	sweepWorker.Start(workerCtx)

	lifecycleWorker := workers.NewLifecycleWorker(reservationRepo, index, m, log, cfg.Workers.LifecycleInterval)
	lifecycleWorker.Start(workerCtx)

	// Initialize handlers
	h := handlers.NewHandlers(
		log,
		bookingService,
		approvalService,
		flowCache,
		authService,
		resourceRepo,
		userRepo,
		roleRepo,
		permissionRepo,
		&handlers.HealthCheckers{
			DB:    db,
			Redis: redis,
		},
		cfg.App.Version,
	)

	// Initialize router
	router := rest.NewRouter(log, h, authService, m, cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst)
	router.SetupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("API server listening", logger.String("address", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))

		// Stop background workers first
		sweepWorker.Stop()
		lifecycleWorker.Stop()

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Gracefully shutdown the server
		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
