// Package biolink provides the biolink API server and client.

// The code is organized into subpackages:

// - cmd/server: HTTP API entry point
// - cmd/migrate, cmd/seed: schema and fixture tooling
// - cmd/cli: command line client
// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/repository: GORM data access for users, links, icons and analytics
// - internal/analytics: Event recording and Parquet archival
// - internal/referrer: Traffic source classification
// - internal/cache: Redis cache-aside layer
// - internal/ratelimit: Fixed-window request quotas
// - internal/storage: S3 object storage for avatars and archives
// - internal/middleware: HTTP middleware (sessions, rate limiting, tracing)
// - pkg/client: Go client with observable state stores

// See the individual package documentation for detailed API reference.
package biolink
