package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/coster/internal/adapter/http/handler"
	"github.com/iho/coster/internal/adapter/http/middleware"
	"github.com/iho/coster/internal/infrastructure/metrics"
	"github.com/iho/coster/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TabHandler        *handler.TabHandler
	SettlementHandler *handler.SettlementHandler
	LedgerHandler     *handler.LedgerHandler
	HealthHandler     *handler.HealthHandler

	// Optional. Nil values disable the corresponding middleware.
	Metrics          *metrics.Metrics
	IdempotencyStore usecase.IdempotencyStore
	RateLimiter      *middleware.RateLimiter

	IdempotencyTTL time.Duration
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotency.Wrap)
		}
		r.Use(middleware.Actor)

		r.Route("/tabs", func(r chi.Router) {
			r.Post("/", cfg.TabHandler.Create)
			r.Get("/", cfg.TabHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.TabHandler.Get)
				r.Delete("/", cfg.TabHandler.Delete)

				r.Post("/users", cfg.TabHandler.AddUser)
				r.Delete("/users/{userID}", cfg.TabHandler.RemoveUser)
				r.Get("/users/{userID}/account", cfg.TabHandler.GetUserAccount)
				r.Get("/categories/{category}/account", cfg.TabHandler.GetCategoryAccount)

				r.Post("/expenses", cfg.TabHandler.AddExpense)
				r.Delete("/expenses/{expenseID}", cfg.TabHandler.RemoveExpense)

				r.Get("/settlements", cfg.SettlementHandler.Settle)
				r.Get("/balances", cfg.SettlementHandler.Balances)
				r.Get("/consistency", cfg.LedgerHandler.CheckConsistency)
				r.Get("/actions", cfg.TabHandler.ListActions)
			})
		})
	})

	return r
}
