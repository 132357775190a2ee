package memory

import (
	"context"
	"sync"
	"time"
)

const pendingResponse = "processing"

type idempotencyEntry struct {
	response  []byte
	expiresAt time.Time
}

// IdempotencyStore implements usecase.IdempotencyStore in process memory.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	now     func() time.Time
}

// NewIdempotencyStore creates an empty IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		now:     time.Now,
	}
}

// CheckAndSet claims key unless a live entry exists, in which case it returns
// true and the stored response.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return true, clone(entry.response), nil
	}

	if response == nil {
		response = []byte(pendingResponse)
	}
	s.entries[key] = idempotencyEntry{response: clone(response), expiresAt: now.Add(ttl)}
	return false, nil, nil
}

// Update replaces the response stored for key.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{response: clone(response), expiresAt: s.now().Add(ttl)}
	return nil
}
