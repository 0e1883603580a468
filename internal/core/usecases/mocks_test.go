package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/gympass/internal/adapters/memory"
	"github.com/samirrijal/gympass/internal/core/domain"
)

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	created   []domain.CheckIn
	validated []domain.CheckIn
	expired   []domain.CheckIn
	err       error
}

func (m *mockPublisher) PublishCheckInCreated(ctx context.Context, c *domain.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *c)
	return m.err
}

func (m *mockPublisher) PublishCheckInValidated(ctx context.Context, c *domain.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validated = append(m.validated, *c)
	return m.err
}

func (m *mockPublisher) PublishCheckInExpired(ctx context.Context, c *domain.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.expired = append(m.expired, *c)
	}
	return m.err
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	// setErr, when set, fails every Set without storing.
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Fixtures ---

type fixture struct {
	clock    *clock.Mock
	gyms     *memory.GymRepo
	checkIns *memory.CheckInRepo
	users    *memory.UserRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock()
	setNow(clk, time.Date(2024, 1, 13, 8, 0, 0, 0, time.UTC))
	return &fixture{
		clock:    clk,
		gyms:     memory.NewGymRepo(clk),
		checkIns: memory.NewCheckInRepo(clk, time.UTC),
		users:    memory.NewUserRepo(clk),
	}
}

func setNow(m *clock.Mock, at time.Time) {
	m.Add(at.Sub(m.Now()))
}

func (f *fixture) gym(t *testing.T, title string, lat, lon float64) *domain.Gym {
	t.Helper()
	g, err := f.gyms.Create(context.Background(), &domain.Gym{Title: title, Latitude: lat, Longitude: lon})
	if err != nil {
		t.Fatalf("create gym: %v", err)
	}
	return g
}
