package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "github.com/zfogg/biolink/internal/errors"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/metrics"
	"github.com/zfogg/biolink/internal/ratelimit"
	"github.com/zfogg/biolink/internal/util"
	"go.uber.org/zap"
)

// PrincipalFunc names who a quota is charged to. ok=false skips limiting.
type PrincipalFunc func(c *gin.Context) (string, bool)

// ByIP charges the client address
func ByIP(c *gin.Context) (string, bool) {
	return c.ClientIP(), true
}

// ByUser charges the session user. Anonymous requests are left to RequireAuth.
func ByUser(c *gin.Context) (string, bool) {
	return util.OptionalUserID(c)
}

// RateLimit enforces q against the principal returned by by
func RateLimit(l ratelimit.Limiter, q ratelimit.Quota, by PrincipalFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := by(c)
		if !ok {
			c.Next()
			return
		}
		if !EnforceQuota(c, l, q, principal) {
			return
		}
		c.Next()
	}
}

// EnforceQuota charges one hit to principal and writes the error response
// when the request must stop. Handlers that learn the principal late call it directly.
func EnforceQuota(c *gin.Context, l ratelimit.Limiter, q ratelimit.Quota, principal string) bool {
	err := q.Enforce(c.Request.Context(), l, principal)
	if err == nil {
		return true
	}

	var limitErr *ratelimit.LimitError
	if errors.As(err, &limitErr) {
		metrics.Get().RateLimitExceededTotal.WithLabelValues(q.Action).Inc()
		logger.Log.Warn("Rate limit exceeded",
			zap.String("action", q.Action),
			zap.String("principal", principal),
			zap.Int("limit", q.Limit),
			zap.Duration("window", q.Window),
		)
		util.RespondWithAPIError(c, apierrors.RateLimited(limitErr.RetryAfterSeconds()))
		return false
	}

	// Limiter store failures fail closed
	logger.Log.Error("Rate limit check failed - rejecting request",
		zap.String("action", q.Action),
		zap.String("principal", principal),
		zap.Error(err),
	)
	util.RespondWithAPIError(c, apierrors.ServiceUnavailable("Service"))
	return false
}
