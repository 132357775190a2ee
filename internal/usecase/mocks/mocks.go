package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/coster/internal/domain"
)

// FakeTabRepository is an in-memory TabRepository. Tabs are stored as
// records, so every Get returns a fresh copy like a real store would.
type FakeTabRepository struct {
	mu   sync.RWMutex
	tabs map[domain.TabID]domain.TabRecord

	CreateFunc func(ctx context.Context, tab *domain.Tab) error
	GetFunc    func(ctx context.Context, id domain.TabID) (*domain.Tab, error)
	SaveFunc   func(ctx context.Context, tab *domain.Tab) error
	DeleteFunc func(ctx context.Context, id domain.TabID) error
	ListFunc   func(ctx context.Context, limit, offset int) ([]*domain.Tab, error)
}

func NewFakeTabRepository() *FakeTabRepository {
	return &FakeTabRepository{
		tabs: make(map[domain.TabID]domain.TabRecord),
	}
}

func (m *FakeTabRepository) Create(ctx context.Context, tab *domain.Tab) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tab)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[tab.ID]; ok {
		return domain.ErrTabAlreadyExists
	}
	m.tabs[tab.ID] = tab.Record()
	return nil
}

func (m *FakeTabRepository) Get(ctx context.Context, id domain.TabID) (*domain.Tab, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.tabs[id]
	if !ok {
		return nil, domain.ErrTabNotFound
	}
	return domain.TabFromRecord(record)
}

func (m *FakeTabRepository) Save(ctx context.Context, tab *domain.Tab) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tab)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[tab.ID]; !ok {
		return domain.ErrTabNotFound
	}
	m.tabs[tab.ID] = tab.Record()
	return nil
}

func (m *FakeTabRepository) Delete(ctx context.Context, id domain.TabID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[id]; !ok {
		return domain.ErrTabNotFound
	}
	delete(m.tabs, id)
	return nil
}

func (m *FakeTabRepository) List(ctx context.Context, limit, offset int) ([]*domain.Tab, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]domain.TabID, 0, len(m.tabs))
	for id := range m.tabs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var tabs []*domain.Tab
	for i := offset; i < len(ids) && len(tabs) < limit; i++ {
		tab, err := domain.TabFromRecord(m.tabs[ids[i]])
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

// FakeIDGenerator returns sequential ids unless GenerateFunc is set.
type FakeIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewFakeIDGenerator() *FakeIDGenerator {
	return &FakeIDGenerator{}
}

func (m *FakeIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("tab-%d", m.counter)
}

// FakeIdempotencyStore keeps idempotency keys in memory.
type FakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewFakeIdempotencyStore() *FakeIdempotencyStore {
	return &FakeIdempotencyStore{
		keys: make(map[string][]byte),
	}
}

func (m *FakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.keys[key]; ok {
		return true, existing, nil
	}
	m.keys[key] = response
	return false, nil, nil
}

func (m *FakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = response
	return nil
}

// FakeMetrics counts recorded metrics.
type FakeMetrics struct {
	mu          sync.Mutex
	Mutations   map[string]int
	Settlements int
	Failures    map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{
		Mutations: make(map[string]int),
		Failures:  make(map[string]int),
	}
}

func (m *FakeMetrics) TabMutated(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Mutations[operation]++
}

func (m *FakeMetrics) SettlementComputed(duration time.Duration, settlements int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settlements++
}

func (m *FakeMetrics) SettlementFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[reason]++
}
