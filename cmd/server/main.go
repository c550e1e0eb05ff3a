package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/kasir/internal"
	"github.com/DukeRupert/kasir/internal/ai"
	"github.com/DukeRupert/kasir/internal/auth"
	"github.com/DukeRupert/kasir/internal/company"
	"github.com/DukeRupert/kasir/internal/handler"
	"github.com/DukeRupert/kasir/internal/jobs"
	"github.com/DukeRupert/kasir/internal/metrics"
	"github.com/DukeRupert/kasir/internal/middleware"
	"github.com/DukeRupert/kasir/internal/repository"
	"github.com/DukeRupert/kasir/internal/service"
	"github.com/DukeRupert/kasir/internal/storage"
	"github.com/DukeRupert/kasir/internal/usage"
	"github.com/DukeRupert/kasir/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := internal.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	logger.Info("Database ready")

	repo := repository.New(db)

	// ==========================================================================
	// Stores and services
	// ==========================================================================

	clock := usage.SystemClock{}
	companies := company.NewPostgresStore(repo)
	counters := usage.NewCounterStore(clock)
	bytesStore := usage.NewPostgresBytesStore(repo)

	objects, err := newObjectStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	subscriptionService := service.NewSubscriptionService(companies, clock, cfg.SweepConcurrency, logger)
	quotaService := service.NewQuotaService(counters, clock, logger)
	storageQuotaService := service.NewStorageQuotaService(bytesStore, logger)
	uploadService := service.NewUploadService(storageQuotaService, objects, cfg.UploadMaxBytes, logger)
	estimator := ai.NewEstimator(cfg.TokenEncodingModel, logger)

	// ==========================================================================
	// Background sweep
	// ==========================================================================

	var w *worker.Worker
	if cfg.SweepEnabled {
		w, err = worker.New(worker.Config{
			JobTimeout:      cfg.SweepTimeout,
			ShutdownTimeout: 30 * time.Second,
			RunOnStart:      true,
		}, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		if err := w.Register(jobs.NewExpireSubscriptionsHandler(subscriptionService, logger), cfg.SweepInterval); err != nil {
			return fmt.Errorf("worker registration failed: %w", err)
		}
		w.Start(ctx)
	} else {
		logger.Info("Subscription sweep disabled, expecting external scheduler")
	}

	// ==========================================================================
	// Router
	// ==========================================================================

	principalMw := middleware.NewPrincipalMiddleware(logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(cfg.IsSecure())
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)

	sweepLimiter := middleware.NewRateLimiter(cfg.SweepTriggerPerMinute, time.Minute)
	defer sweepLimiter.Close()
	sweepRateLimit := middleware.NewRateLimitMiddleware(sweepLimiter, logger)

	requireTenant := principalMw.RequireRole(auth.RoleKasir, auth.RoleAdmin)
	requireAdmin := principalMw.RequireRole(auth.RoleAdmin)
	requireSuperadmin := principalMw.RequireRole(auth.RoleSuperadmin)

	mux := http.NewServeMux()

	mux.Handle("GET /health", handler.NewHealthHandler(db))
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	handler.NewKasirHandler(subscriptionService, quotaService, estimator, logger).
		RegisterRoutes(mux, requireTenant)
	handler.NewAdminHandler(subscriptionService, quotaService, storageQuotaService, uploadService, cfg.UploadMaxBytes, logger).
		RegisterRoutes(mux, requireAdmin)
	handler.NewSuperadminHandler(subscriptionService, quotaService, storageQuotaService, logger).
		RegisterRoutes(mux, middleware.Stack(requireSuperadmin, sweepLimitFor(sweepRateLimit)))

	if cfg.StorageProvider == storage.ProviderLocal {
		files := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", files))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// metrics sits next to the mux so it sees the request the mux sets
	// Pattern on; WithPrincipal hands a copy downstream.
	root := middleware.Stack(
		securityMw.Handler,
		principalMw.WithPrincipal,
		loggingMw.Handler,
		metrics.Middleware,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if w != nil {
		w.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// sweepLimitFor rate limits only the manual sweep trigger; the other
// superadmin routes are read-mostly.
func sweepLimitFor(rl *middleware.RateLimitMiddleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := rl.Limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && r.URL.Path == "/superadmin/subscriptions/sweep" {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newObjectStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
			Endpoint:        cfg.R2Endpoint,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
