// Package config provides centralized configuration for the fairtrack
// service. Values come from environment variables with defaults, and are
// validated on startup so misconfiguration fails before the first request.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout applied to each request
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// DB_URL is accepted as an alternate name.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of pooled connections
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime closes connections idle longer than this
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// InitSchema creates the entity tables on startup when true
	InitSchema bool `env:"DB_INIT_SCHEMA" default:"true"`
}

// ImportConfig holds spreadsheet import settings, including the
// legacy-compatibility switches for the reconciliation engine.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 20MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	// Timeout bounds a single import run
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`

	// SchoolKeyIncludesTown widens the school natural key from name to
	// (name, town). The historical importer keyed on name only.
	SchoolKeyIncludesTown bool `env:"IMPORT_SCHOOL_KEY_INCLUDES_TOWN" default:"false"`

	// OneStudentPerProject keeps the historical one-student-per-(project,
	// school) identity. Set false to insert a student per accepted row.
	OneStudentPerProject bool `env:"IMPORT_ONE_STUDENT_PER_PROJECT" default:"true"`

	// CategoryPlaceholder is stored on new projects until the source data
	// grows a category column.
	CategoryPlaceholder string `env:"IMPORT_CATEGORY_PLACEHOLDER" default:"Uncategorized"`
}

// RateLimitConfig holds per-IP request throttling settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the per-IP limit
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key auth on the API routes
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is the comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port form.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}
