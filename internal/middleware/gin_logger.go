package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/util"
	"go.uber.org/zap"
)

// quietPaths are probe endpoints logged only when they fail
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// GinLoggerMiddleware logs one structured line per request, replacing gin.Logger.
// Level follows the status class.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		if status < 400 && quietPaths[path] {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", path),
			logger.WithStatus(status),
			logger.WithIP(c.ClientIP()),
			zap.Int("response_size", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
		}
		if requestID := RequestID(c); requestID != "" {
			fields = append(fields, logger.WithRequestID(requestID))
		}
		// user_id is set by LoadSession further down the chain
		if userID, ok := util.OptionalUserID(c); ok {
			fields = append(fields, logger.WithUserID(userID))
		}
		if hit := c.Writer.Header().Get("X-Cache"); hit != "" {
			fields = append(fields, zap.String("cache", hit))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Log.Error("HTTP request", fields...)
		case status >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Info("HTTP request", fields...)
		}
	}
}
