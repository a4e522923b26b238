// Package main is the entrypoint for the lookscore API server.
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

	"github.com/kiranshivaraju/lookscore/internal/ai"
	"github.com/kiranshivaraju/lookscore/internal/api"
	"github.com/kiranshivaraju/lookscore/internal/api/handler"
	mw "github.com/kiranshivaraju/lookscore/internal/api/middleware"
	"github.com/kiranshivaraju/lookscore/internal/api/response"
	"github.com/kiranshivaraju/lookscore/internal/audit"
	"github.com/kiranshivaraju/lookscore/internal/cache"
	"github.com/kiranshivaraju/lookscore/internal/config"
	"github.com/kiranshivaraju/lookscore/internal/metrics"
	"github.com/kiranshivaraju/lookscore/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"model_provider", cfg.Model.Provider,
		"job_store", cfg.Jobs.Store,
		"env", cfg.Server.Env,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]pinger{}

	// 2. Redis, when configured
	var redisCache *cache.RedisCache
	if cfg.Redis.URL != "" {
		redisCache, err = cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		checks["cache"] = redisCache
		slog.Info("redis connected")
	}

	// 3. Job store
	var jobStore store.JobStore
	switch cfg.Jobs.Store {
	case config.StoreRedis:
		jobStore = store.NewRedisStore(redisCache, cfg.Jobs.TTL)
	default:
		jobStore = store.NewMemoryStore()
	}
	checks["store"] = jobStore
	slog.Info("job store ready", "backend", cfg.Jobs.Store, "ttl", cfg.Jobs.TTL.String())

	// 4. Outcome audit log, when a database is configured
	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.Database.URL != "" {
		pool, err := audit.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := audit.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		pgRecorder := audit.NewPostgresRecorder(pool)
		recorder = pgRecorder
		checks["database"] = pgRecorder
		slog.Info("database connected, migrations applied")
	}

	// 5. Model gateway and orchestrator
	gateway, err := ai.NewGateway(cfg.Model)
	if err != nil {
		return fmt.Errorf("create model gateway: %w", err)
	}
	slog.Info("model gateway initialized", "gateway", gateway.Name())

	svc := ai.NewAnalysisService(gateway, jobStore, cfg.Jobs.TTL, ai.WithRecorder(recorder))
	if cfg.Jobs.SweepInterval > 0 {
		go svc.RunSweeper(ctx, cfg.Jobs.SweepInterval)
		slog.Info("job sweeper started", "interval", cfg.Jobs.SweepInterval.String())
	}

	metrics.Register()

	// 6. Build router with dependencies
	var rateLimit *mw.RateLimit
	if redisCache != nil {
		rateLimit = mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute)
	}

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:         healthHandler(checks),
		StartAnalysisHandler:  handler.NewStartAnalysisHandler(svc, cfg.Server.MaxRequestBytes),
		AnalysisStatusHandler: handler.NewAnalysisStatusHandler(svc),
		MetricsHandler:        metrics.Handler(),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		slog.Warn("analysis jobs still running at shutdown", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler pings every configured backend.
func healthHandler(checks map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := make(map[string]string, len(checks))
		degraded := false
		for name, p := range checks {
			services[name] = "ok"
			if err := p.Ping(r.Context()); err != nil {
				slog.Warn("health check failed", "service", name, "error", err)
				services[name] = "degraded"
				degraded = true
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", services)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": services,
		})
	}
}
