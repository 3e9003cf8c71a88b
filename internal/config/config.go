// Package config loads server configuration from defaults, an optional YAML file and
// the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file path
const ConfigPathEnvVar = "CONFIG_FILE"

// DefaultConfigPaths are searched in order when CONFIG_FILE is unset
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/biolink/config.yaml",
}

// Config is the full server configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Storage   StorageConfig   `koanf:"storage"`
	Cache     CacheConfig     `koanf:"cache"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
	// BaseURL is the public origin of the profile site; referrers from it count as direct traffic.
	BaseURL        string        `koanf:"base_url"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	SessionSecret  string        `koanf:"session_secret" validate:"required,min=32"`
	SecureCookies  bool          `koanf:"secure_cookies"`
	TrustedProxies []string      `koanf:"trusted_proxies"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	Environment    string        `koanf:"environment" validate:"oneof=development production test"`
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver" validate:"oneof=postgres sqlite"`
	DSN          string `koanf:"dsn" validate:"required"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type RedisConfig struct {
	// Empty host disables Redis: caching is off and rate limits are kept in memory.
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type StorageConfig struct {
	// Empty bucket disables archival uploads and avatar storage.
	Bucket   string `koanf:"bucket"`
	Region   string `koanf:"region"`
	BaseURL  string `koanf:"base_url"`
	Endpoint string `koanf:"endpoint"`
}

type CacheConfig struct {
	ShortTTL time.Duration `koanf:"short_ttl" validate:"gt=0"`
	LongTTL  time.Duration `koanf:"long_ttl" validate:"gtfield=ShortTTL"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate" validate:"gte=0,lte=1"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisEnabled reports whether a Redis host is configured
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// StorageEnabled reports whether an S3 bucket is configured
func (c *Config) StorageEnabled() bool {
	return c.Storage.Bucket != ""
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8787,
			CORSOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			Environment:  "development",
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "biolink.db",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			AutoMigrate:  true,
		},
		Redis: RedisConfig{
			Port: "6379",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Cache: CacheConfig{
			ShortTTL: 5 * time.Minute,
			LongTTL:  time.Hour,
		},
		Log: LogConfig{
			Level: "info",
			File:  "biolink.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "biolink",
			SampleRate:  0.1,
		},
	}
}

// Load reads .env (if present), then layers defaults, the YAML config file and
// environment variables, and validates the result.
func Load() (*Config, error) {
	// .env is optional; real environment variables always win over it
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for _, key := range []string{"server.cors_origins", "server.trusted_proxies"} {
		if raw, ok := k.Get(key).(string); ok {
			if err := k.Set(key, splitList(raw)); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", key, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps conventional environment variable names to config paths
var envMappings = map[string]string{
	"host":              "server.host",
	"port":              "server.port",
	"public_base_url":   "server.base_url",
	"cors_origins":      "server.cors_origins",
	"session_secret":    "server.session_secret",
	"secure_cookies":    "server.secure_cookies",
	"trusted_proxies":   "server.trusted_proxies",
	"environment":       "server.environment",
	"database_driver":   "database.driver",
	"database_url":      "database.dsn",
	"db_max_open_conns": "database.max_open_conns",
	"db_max_idle_conns": "database.max_idle_conns",
	"db_auto_migrate":   "database.auto_migrate",
	"redis_host":        "redis.host",
	"redis_port":        "redis.port",
	"redis_password":    "redis.password",
	"redis_db":          "redis.db",
	"aws_region":        "storage.region",
	"aws_bucket":        "storage.bucket",
	"s3_base_url":       "storage.base_url",
	"s3_endpoint":       "storage.endpoint",
	"cache_short_ttl":   "cache.short_ttl",
	"cache_long_ttl":    "cache.long_ttl",
	"log_level":         "log.level",
	"log_file":          "log.file",
	"otel_enabled":      "telemetry.enabled",
	"otel_endpoint":     "telemetry.endpoint",
	"otel_service_name": "telemetry.service_name",
	"otel_sample_rate":  "telemetry.sample_rate",
}

// envTransformFunc maps environment variables to koanf paths.
// BIOLINK_SECTION__FIELD maps to section.field; a small set of conventional
// names (DATABASE_URL, REDIS_HOST, ...) are mapped explicitly. Everything else is skipped.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if rest, ok := strings.CutPrefix(key, "biolink_"); ok {
		return strings.ReplaceAll(rest, "__", ".")
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
