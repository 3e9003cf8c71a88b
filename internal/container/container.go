// Package container provides dependency injection for the biolink backend.
// Infrastructure handles are registered with Set* methods; Wire then builds the
// repositories and services that handlers consume.
package container

import (
	"context"
	"sync"

	"github.com/zfogg/biolink/internal/analytics"
	"github.com/zfogg/biolink/internal/cache"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/ratelimit"
	"github.com/zfogg/biolink/internal/referrer"
	"github.com/zfogg/biolink/internal/repository"
	"github.com/zfogg/biolink/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	// Core infrastructure
	db       *gorm.DB
	logger   *zap.Logger
	redis    *cache.RedisClient
	cache    *cache.Cache
	limiter  ratelimit.Limiter
	storage  storage.ObjectStore
	referrer *referrer.Classifier

	// Repositories
	users     *repository.UserRepository
	links     *repository.LinkRepository
	icons     *repository.IconRepository
	comments  *repository.CommentRepository
	analytics *repository.AnalyticsRepository

	// Services
	recorder *analytics.Recorder
	archiver *analytics.Archiver

	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates an empty container
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// ============================================================================
// CORE INFRASTRUCTURE
// ============================================================================

// SetDB registers the database connection
func (c *Container) SetDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetLogger registers the logger
func (c *Container) SetLogger(l *zap.Logger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger returns the logger, falling back to the global one
func (c *Container) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggerLocked()
}

func (c *Container) loggerLocked() *zap.Logger {
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetRedis registers the Redis client backing the cache and the limiter
func (c *Container) SetRedis(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redis = client
	return c
}

// Redis returns the Redis client, nil when Redis is not configured
func (c *Container) Redis() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redis
}

// SetCache registers the cache-aside accessor
func (c *Container) SetCache(ch *cache.Cache) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = ch
	return c
}

// Cache returns the cache-aside accessor
func (c *Container) Cache() *cache.Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// SetLimiter registers the rate limiter
func (c *Container) SetLimiter(l ratelimit.Limiter) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = l
	return c
}

// Limiter returns the rate limiter
func (c *Container) Limiter() ratelimit.Limiter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limiter
}

// SetStorage registers the object store used for archives and avatars
func (c *Container) SetStorage(store storage.ObjectStore) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storage = store
	return c
}

// Storage returns the object store, nil when storage is not configured
func (c *Container) Storage() storage.ObjectStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage
}

// SetReferrerClassifier registers the referrer classifier
func (c *Container) SetReferrerClassifier(cl *referrer.Classifier) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.referrer = cl
	return c
}

// ReferrerClassifier returns the referrer classifier
func (c *Container) ReferrerClassifier() *referrer.Classifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.referrer
}

// ============================================================================
// REPOSITORIES AND SERVICES
// ============================================================================

// Wire builds repositories and services from the registered infrastructure.
// Optional pieces get working defaults: no cache store disables caching, no
// limiter keeps counters in memory, no classifier skips same-origin detection.
func (c *Container) Wire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return missing("wire", "database (DB)")
	}

	if c.cache == nil {
		var store cache.Store
		if c.redis != nil {
			store = c.redis
		}
		c.cache = cache.New(store, 0, 0)
	}
	if c.limiter == nil {
		if c.redis != nil {
			c.limiter = ratelimit.NewRedisLimiter(c.redis.Client())
		} else {
			c.loggerLocked().Warn("Redis not configured, rate limits are per-process")
			c.limiter = ratelimit.NewMemoryLimiter()
		}
	}
	if c.referrer == nil {
		c.referrer = referrer.NewClassifier("")
	}

	c.users = repository.NewUserRepository(c.db)
	c.links = repository.NewLinkRepository(c.db)
	c.icons = repository.NewIconRepository(c.db)
	c.comments = repository.NewCommentRepository(c.db)
	c.analytics = repository.NewAnalyticsRepository(c.db)

	c.recorder = analytics.NewRecorder(c.users, c.analytics, c.cache, c.referrer)
	c.archiver = analytics.NewArchiver(c.users, c.analytics, c.storage, c.cache)
	return nil
}

// Users returns the user repository
func (c *Container) Users() *repository.UserRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.users
}

// Links returns the link repository
func (c *Container) Links() *repository.LinkRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.links
}

// Icons returns the social icon repository
func (c *Container) Icons() *repository.IconRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.icons
}

// Comments returns the guestbook repository
func (c *Container) Comments() *repository.CommentRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.comments
}

// Analytics returns the analytics event repository
func (c *Container) Analytics() *repository.AnalyticsRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analytics
}

// Recorder returns the analytics event recorder
func (c *Container) Recorder() *analytics.Recorder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recorder
}

// Archiver returns the analytics archive pipeline
func (c *Container) Archiver() *analytics.Archiver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.archiver
}

// ============================================================================
// LIFECYCLE MANAGEMENT
// ============================================================================

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions run in LIFO order.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs every registered cleanup function in reverse order of
// registration. Failures are logged and the rest still run; the first one is returned.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](ctx); err != nil {
			c.loggerLocked().Error("Cleanup function failed",
				zap.Int("index", i),
				zap.Error(err),
			)
			if first == nil {
				first = err
			}
		}
	}
	c.cleanupFuncs = c.cleanupFuncs[:0]
	return first
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate checks that all required dependencies are wired.
// Call it after Wire and before starting the server.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}

	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.limiter == nil {
		missingDeps = append(missingDeps, "rate limiter")
	}
	if c.recorder == nil || c.archiver == nil {
		missingDeps = append(missingDeps, "analytics services (call Wire)")
	}

	if len(missingDeps) > 0 {
		return missing("validate", missingDeps...)
	}

	if c.redis == nil {
		c.loggerLocked().Warn("Optional dependency missing", zap.String("dependency", "Redis cache"))
	}
	if c.storage == nil {
		c.loggerLocked().Warn("Optional dependency missing", zap.String("dependency", "S3 storage"))
	}
	return nil
}
