package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/analytics"
	"github.com/zfogg/biolink/internal/cache"
	"github.com/zfogg/biolink/internal/container"
	apierrors "github.com/zfogg/biolink/internal/errors"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/ratelimit"
	"github.com/zfogg/biolink/internal/repository"
	"github.com/zfogg/biolink/internal/storage"
	"github.com/zfogg/biolink/internal/util"
	"github.com/zfogg/biolink/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db        *gorm.DB
	redis     *cache.RedisClient
	users     *repository.UserRepository
	links     *repository.LinkRepository
	icons     *repository.IconRepository
	comments  *repository.CommentRepository
	analytics *repository.AnalyticsRepository
	recorder  *analytics.Recorder
	archiver  *analytics.Archiver
	cache     *cache.Cache
	limiter   ratelimit.Limiter
	storage   storage.ObjectStore
}

// NewHandlers creates handlers over a wired container
func NewHandlers(c *container.Container) *Handlers {
	return &Handlers{
		db:        c.DB(),
		redis:     c.Redis(),
		users:     c.Users(),
		links:     c.Links(),
		icons:     c.Icons(),
		comments:  c.Comments(),
		analytics: c.Analytics(),
		recorder:  c.Recorder(),
		archiver:  c.Archiver(),
		cache:     c.Cache(),
		limiter:   c.Limiter(),
		storage:   c.Storage(),
	}
}

// Limiter exposes the rate limiter so routes can attach quotas
func (h *Handlers) Limiter() ratelimit.Limiter {
	return h.limiter
}

// Conflict messages shown to the client verbatim
const (
	msgSlugTaken     = "This username is already taken. Please choose a different one."
	msgPlatformTaken = "Social icon for this platform already exists"
)

// repoError maps repository sentinels to API errors. Anything else is an
// upstream failure and becomes a generic 500 in util.RespondWithError.
func repoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apierrors.NotFound("User")
	case errors.Is(err, repository.ErrLinkNotFound):
		return apierrors.NotFound("Link")
	case errors.Is(err, repository.ErrIconNotFound):
		return apierrors.NotFound("Social icon")
	case errors.Is(err, repository.ErrSlugTaken):
		return apierrors.Conflict(msgSlugTaken)
	case errors.Is(err, repository.ErrPlatformTaken):
		return apierrors.Conflict(msgPlatformTaken)
	case errors.Is(err, repository.ErrInvalidInput):
		return apierrors.BadRequest("Invalid input")
	default:
		return err
	}
}

// bindJSON decodes and validates the request body. On failure it writes the
// 400 response and returns false.
func bindJSON(c *gin.Context, req interface{}, normalize ...func()) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		util.RespondBadRequest(c, "Invalid request body")
		return false
	}
	for _, fn := range normalize {
		fn()
	}
	if err := validation.Struct(req); err != nil {
		util.RespondWithError(c, err)
		return false
	}
	return true
}

// trimPtr trims a string in place, leaving nil alone
func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// cached is the cache-aside read path: a hit is served as-is, a miss calls load
// and stores the result under key. Sets X-Cache for debugging.
func cached[T any](c *gin.Context, ch *cache.Cache, key string, long bool, load func(ctx context.Context) (T, error)) (T, error) {
	ctx := c.Request.Context()
	if v, ok := cache.GetJSON[T](ctx, ch, key); ok {
		c.Header("X-Cache", "HIT")
		return v, nil
	}
	c.Header("X-Cache", "MISS")

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	ttl := ch.ShortTTL()
	if long {
		ttl = ch.LongTTL()
	}
	cache.SetJSON(ctx, ch, key, v, ttl)
	return v, nil
}

// invalidate drops keys after a committed mutation; failures are logged by the cache
func (h *Handlers) invalidate(c *gin.Context, keys ...string) {
	h.cache.Delete(c.Request.Context(), keys...)
}

// profileKey resolves the owner's current slug for profile invalidation.
// A lookup failure only costs the profile entry its freshness until TTL expiry.
func (h *Handlers) profileKey(c *gin.Context, userID string) []string {
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		logger.Log.Warn("Failed to resolve slug for cache invalidation",
			logger.WithUserID(userID),
			zap.Error(err),
		)
		return nil
	}
	return []string{cache.ProfileKey(user.Slug)}
}

// deleted is the body of successful DELETE responses
func deleted(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}
