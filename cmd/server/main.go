package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/cache"
	"github.com/zfogg/biolink/internal/config"
	"github.com/zfogg/biolink/internal/container"
	"github.com/zfogg/biolink/internal/database"
	"github.com/zfogg/biolink/internal/handlers"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/metrics"
	"github.com/zfogg/biolink/internal/middleware"
	"github.com/zfogg/biolink/internal/referrer"
	"github.com/zfogg/biolink/internal/storage"
	"github.com/zfogg/biolink/internal/telemetry"
	"github.com/zfogg/biolink/internal/validation"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Log, cfg.Server.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("=== biolink server starting ===", zap.String("environment", cfg.Server.Environment))

	ctx := context.Background()
	c := container.New()
	c.SetLogger(logger.Log)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, cfg.Server.Environment)
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}
	c.OnCleanup(shutdownTracer)

	metrics.Initialize()

	db, err := database.Open(cfg.Database, cfg.Server.Environment)
	if err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	c.SetDB(db)
	c.OnCleanup(func(context.Context) error { return database.Close(db) })

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.FatalWithFields("Failed to run migrations", err)
		}
	}

	if cfg.RedisEnabled() {
		rc, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.WarnWithFields("Redis unavailable - caching disabled, rate limits kept in memory", err)
		} else {
			c.SetRedis(rc)
			c.OnCleanup(func(context.Context) error { return rc.Close() })
		}
	}
	c.SetCache(cache.New(cacheStore(c.Redis()), cfg.Cache.ShortTTL, cfg.Cache.LongTTL))

	if cfg.StorageEnabled() {
		uploader, err := storage.NewS3Uploader(ctx, cfg.Storage)
		if err != nil {
			logger.FatalWithFields("Failed to initialize S3 uploader", err)
		}
		if err := uploader.CheckBucketAccess(ctx); err != nil {
			logger.WarnWithFields("S3 bucket access failed - archive and avatar uploads will fail", err)
		}
		c.SetStorage(uploader)
	} else {
		logger.Log.Warn("No storage bucket configured - analytics archival and avatar uploads are disabled")
	}

	c.SetReferrerClassifier(referrer.NewClassifier(cfg.Server.BaseURL))

	if err := c.Wire(); err != nil {
		logger.FatalWithFields("Failed to wire services", err)
	}
	if err := c.Validate(); err != nil {
		logger.FatalWithFields("Container validation failed", err)
	}

	checks := map[string]validation.ServiceCheck{
		"postgres": func(ctx context.Context) error { return database.Health(ctx, db) },
	}
	if rc := c.Redis(); rc != nil {
		checks["redis"] = rc.Ping
	}
	if err := validation.NewServiceValidator(checks).ValidateServices(ctx); err != nil {
		logger.FatalWithFields("Required service unavailable", err)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, handlers.NewHandlers(c))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Log.Info("🔗 biolink backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := c.Cleanup(shutdownCtx); err != nil {
		logger.ErrorWithFields("Cleanup failed", err)
	}

	logger.Log.Info("Server exited")
}

// cacheStore avoids handing cache.New a typed nil when Redis is off
func cacheStore(rc *cache.RedisClient) cache.Store {
	if rc == nil {
		return nil
	}
	return rc
}

func newRouter(cfg *config.Config, h *handlers.Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.WarnWithFields("Invalid trusted proxies", err)
	}

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	corsCfg.AllowCredentials = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader, middleware.CorrelationHeader}
	corsCfg.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After", "X-Cache"}
	r.Use(cors.New(corsCfg))

	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware(cfg.Telemetry.ServiceName)...)
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.Sessions(middleware.SessionConfig{
		Secret: cfg.Server.SessionSecret,
		Secure: cfg.Server.SecureCookies,
	}))
	r.Use(middleware.LoadSession())
	r.Use(middleware.GinLoggerMiddleware())

	h.RegisterRoutes(r)
	return r
}
