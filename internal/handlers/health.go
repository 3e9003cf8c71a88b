package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/biolink/internal/database"
	"github.com/zfogg/biolink/internal/logger"
	"go.uber.org/zap"
)

// Health reports dependency status. Only the database is required for 200.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if err := database.Health(ctx, h.db); err != nil {
		logger.Log.Error("Health check: database unreachable", zap.Error(err))
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	switch {
	case h.redis == nil:
		checks["redis"] = "disabled"
	case h.redis.Ping(ctx) != nil:
		checks["redis"] = "down"
	default:
		checks["redis"] = "ok"
	}

	if h.storage == nil {
		checks["storage"] = "disabled"
	} else {
		checks["storage"] = "configured"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC(),
		"service":   "biolink-backend",
		"checks":    checks,
	})
}

// Metrics serves the Prometheus exposition
// GET /metrics
func (h *Handlers) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
