package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/coster/internal/adapter/http"
	"github.com/iho/coster/internal/adapter/http/handler"
	"github.com/iho/coster/internal/adapter/http/middleware"
	"github.com/iho/coster/internal/adapter/repository/kv"
	"github.com/iho/coster/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/coster/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/coster/internal/adapter/repository/redis"
	"github.com/iho/coster/internal/infrastructure/config"
	"github.com/iho/coster/internal/infrastructure/logger"
	"github.com/iho/coster/internal/infrastructure/metrics"
	"github.com/iho/coster/internal/infrastructure/postgres"
	"github.com/iho/coster/internal/infrastructure/redis"
	"github.com/iho/coster/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// backend is the storage selected by configuration.
type backend struct {
	store       kv.Store
	idempotency usecase.IdempotencyStore
	checks      map[string]handler.ReadinessCheck
	close       func()
}

// openBackend connects to the configured storage backend.
func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info().Msg("connected to redis")

		return &backend{
			store:       redisRepo.NewStore(client, cfg.StoragePrefix),
			idempotency: redisRepo.NewIdempotencyStore(client, cfg.StoragePrefix),
			checks: map[string]handler.ReadinessCheck{
				"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
			},
			close: func() { _ = client.Close() },
		}, nil

	case config.StoragePostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return nil, err
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info().Msg("connected to postgres")

		return &backend{
			store:       postgresRepo.NewStore(pool, postgresRepo.NewRetrier(log)),
			idempotency: memory.NewIdempotencyStore(),
			checks: map[string]handler.ReadinessCheck{
				"postgres": pool.Ping,
			},
			close: pool.Close,
		}, nil

	default:
		return &backend{
			store:       memory.NewStore(),
			idempotency: memory.NewIdempotencyStore(),
			close:       func() {},
		}, nil
	}
}

// newRouter wires use cases and handlers over store.
func newRouter(cfg *config.Config, b *backend, m *metrics.Metrics, log zerolog.Logger) http.Handler {
	tabRepo := kv.NewTabRepository(b.store)

	tabUC := usecase.NewTabUseCase(tabRepo, postgresRepo.NewULIDGenerator(), m, log)
	settlementUC := usecase.NewSettlementUseCase(tabRepo, m, log)
	ledgerUC := usecase.NewLedgerUseCase(tabRepo)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m.RateLimitHits)
	}

	return httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TabHandler:        handler.NewTabHandler(tabUC),
		SettlementHandler: handler.NewSettlementHandler(settlementUC),
		LedgerHandler:     handler.NewLedgerHandler(ledgerUC),
		HealthHandler:     handler.NewHealthHandler(b.checks),
		Metrics:           m,
		IdempotencyStore:  b.idempotency,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		RateLimiter:       limiter,
		Logger:            log,
	})
}

func newServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

func newMetrics() *metrics.Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return metrics.New(reg)
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	server := newServer(cfg, newRouter(cfg, b, newMetrics(), log))

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.HTTPPort).
			Str("storage", cfg.StorageBackend).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
