package usecase

import (
	"context"
	"time"

	"github.com/iho/coster/internal/domain"
)

// TabRepository defines data access for tabs.
type TabRepository interface {
	// Create stores a new tab. It fails with domain.ErrTabAlreadyExists if
	// the id is taken.
	Create(ctx context.Context, tab *domain.Tab) error
	// Get loads a tab and rebuilds its account index.
	Get(ctx context.Context, id domain.TabID) (*domain.Tab, error)
	// Save overwrites an existing tab.
	Save(ctx context.Context, tab *domain.Tab) error
	Delete(ctx context.Context, id domain.TabID) error
	List(ctx context.Context, limit, offset int) ([]*domain.Tab, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// MetricsRecorder receives business metrics from the use cases.
type MetricsRecorder interface {
	TabMutated(operation string)
	SettlementComputed(duration time.Duration, settlements int)
	SettlementFailed(reason string)
}

// NopMetrics discards every metric.
type NopMetrics struct{}

func (NopMetrics) TabMutated(string) {}

func (NopMetrics) SettlementComputed(time.Duration, int) {}

func (NopMetrics) SettlementFailed(string) {}
