package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/zfogg/biolink/internal/cache"
	"github.com/zfogg/biolink/internal/ratelimit"
	"github.com/zfogg/biolink/internal/referrer"
	"github.com/zfogg/biolink/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockContainer is a container for tests. Infrastructure is swapped for test
// doubles (sqlite, miniredis, in-memory stores) before Build wires the services.
type MockContainer struct {
	*Container
}

// NewMock creates a mock container with a no-op logger and an in-memory limiter
func NewMock() *MockContainer {
	m := &MockContainer{Container: New()}
	m.SetLogger(zap.NewNop())
	m.SetLimiter(ratelimit.NewMemoryLimiter())
	return m
}

// WithMockDB sets the database
func (m *MockContainer) WithMockDB(db *gorm.DB) *MockContainer {
	m.SetDB(db)
	return m
}

// WithMockRedis backs the cache with client, typically connected to miniredis
func (m *MockContainer) WithMockRedis(client *redis.Client) *MockContainer {
	m.SetRedis(cache.WrapRedisClient(client))
	return m
}

// WithMockStorage sets the object store
func (m *MockContainer) WithMockStorage(store storage.ObjectStore) *MockContainer {
	m.SetStorage(store)
	return m
}

// WithMockLimiter replaces the in-memory limiter
func (m *MockContainer) WithMockLimiter(l ratelimit.Limiter) *MockContainer {
	m.SetLimiter(l)
	return m
}

// WithBaseURL sets the origin whose referrers count as direct traffic
func (m *MockContainer) WithBaseURL(baseURL string) *MockContainer {
	m.SetReferrerClassifier(referrer.NewClassifier(baseURL))
	return m
}

// Build wires the services and returns the container, panicking on missing infrastructure
func (m *MockContainer) Build() *Container {
	if err := m.Wire(); err != nil {
		panic(err)
	}
	return m.Container
}
