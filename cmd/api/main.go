package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/asc360/operator-portal/internal/config"
	"github.com/asc360/operator-portal/internal/identity"
	"github.com/asc360/operator-portal/internal/infra"
	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/logging"
	"github.com/asc360/operator-portal/internal/payment"
	"github.com/asc360/operator-portal/internal/plan"
	"github.com/asc360/operator-portal/internal/policy"
	"github.com/asc360/operator-portal/internal/reconciler"
	"github.com/asc360/operator-portal/internal/server"
	"github.com/asc360/operator-portal/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := ensureSchemas(ctx, db); err != nil {
			logger.Error("ensure schemas", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotency cache and login rate limit disabled")
	}

	collector := metrics.NewCollector(logger)
	metricsSrv := collector.StartMetricsServer(cfg.MetricsAddr)

	srv, err := server.New(cfg, db, cache, logger, collector)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	sweeper := reconciler.New(srv.Services().Ledger, cfg.ReconcileSpec, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error("start reconciler", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	sweeper.Stop()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

// ensureSchemas creates any missing tables. Statements are idempotent, so a
// restart against an existing database is a no-op.
func ensureSchemas(ctx context.Context, db *pgxpool.Pool) error {
	if err := identity.NewPostgresRepository(db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("identity schema: %w", err)
	}
	if err := ledger.NewPostgresStore(db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ledger schema: %w", err)
	}
	if err := plan.NewPostgresRepository(db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("plan schema: %w", err)
	}
	if err := policy.NewPostgresRepository(db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("policy schema: %w", err)
	}
	if err := payment.NewPostgresRepository(db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("payment schema: %w", err)
	}
	return nil
}
