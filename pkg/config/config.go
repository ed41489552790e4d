package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/farmstead/farmbook/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects and tunes the backing database.
// Backend "sqlite" runs single-binary from a local file; "postgres"
// is the multi-user deployment.
type DatabaseConfig struct {
	Backend     string
	SQLitePath  string
	PostgresURL string
	MaxConns    int
	MinConns    int
	PingTimeout time.Duration
}

// RateLimitConfig configures the Redis-backed request rate limiter.
// Leave RedisURL empty to disable rate limiting.
type RateLimitConfig struct {
	RedisURL          string
	RedisPassword     string
	RedisDB           int
	RequestsPerMinute int
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("FARMBOOK_HOST", "0.0.0.0"),
			Port:            getEnv("FARMBOOK_PORT", "8080"),
			ReadTimeout:     getEnvDuration("FARMBOOK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("FARMBOOK_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("FARMBOOK_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("FARMBOOK_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Backend:     getEnv("FARMBOOK_DB_BACKEND", "sqlite"),
			SQLitePath:  getEnv("FARMBOOK_SQLITE_PATH", "farmbook.db"),
			PostgresURL: getEnv("FARMBOOK_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("FARMBOOK_DB_MAX_CONNS", 25),
			MinConns:    getEnvInt("FARMBOOK_DB_MIN_CONNS", 5),
			PingTimeout: getEnvDuration("FARMBOOK_DB_PING_TIMEOUT", 5*time.Second),
		},
		RateLimit: RateLimitConfig{
			RedisURL:          getEnv("FARMBOOK_REDIS_URL", ""),
			RedisPassword:     getEnv("FARMBOOK_REDIS_PASSWORD", ""),
			RedisDB:           getEnvInt("FARMBOOK_REDIS_DB", 0),
			RequestsPerMinute: getEnvInt("FARMBOOK_RATE_LIMIT_RPM", 300),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("FARMBOOK_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("FARMBOOK_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Backend {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite backend")
		}
	case "postgres":
		if c.Database.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres backend")
		}
	default:
		return fmt.Errorf("invalid database backend: %s (must be sqlite or postgres)", c.Database.Backend)
	}

	if c.RateLimit.RedisURL != "" && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit must be positive when rate limiting is enabled")
	}

	return nil
}

// Driver returns the database/sql driver name for the configured backend
func (c *DatabaseConfig) Driver() string {
	if c.Backend == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// DSN returns the connection string for the configured backend
func (c *DatabaseConfig) DSN() string {
	if c.Backend == "postgres" {
		return c.PostgresURL
	}
	return c.SQLitePath
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
