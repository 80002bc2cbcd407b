// Package config provides configuration management with 3-tier priority:
// Environment variables > .env file > Default values
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/user/uniapi-stats/internal/models"
)

// Database backend kinds.
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	APIConfig   APIConfigFile
	Stats       StatsConfig
	Probe       ProbeConfig
	LogRotation LogRotationConfig
	RateLimit   RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host     string
	Port     int
	LogLevel string

	// TrustedProxies are the IPs or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string
}

// DatabaseConfig selects and parameterizes the log store backend.
type DatabaseConfig struct {
	Type string // sqlite or postgres

	// Embedded backend.
	Path string

	// Networked backend.
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Bootstrap creates the gateway tables when they are missing.
	Bootstrap bool
}

// DSN returns the postgres:// URL for the networked backend. Credentials
// and database name are escaped, and empty ones are left out.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	switch {
	case d.Password != "":
		u.User = url.UserPassword(d.User, d.Password)
	case d.User != "":
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// APIConfigFile locates the operator-managed YAML document holding
// api_keys and providers.
type APIConfigFile struct {
	Path string
}

// StatsConfig scopes statistics queries.
type StatsConfig struct {
	Endpoint string
}

// ProbeConfig holds provider connectivity test settings.
type ProbeConfig struct {
	TimeoutSeconds int
	Prompt         string
}

// Timeout returns the probe timeout as a duration.
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// LogRotationConfig holds log rotation settings powered by lumberjack.
type LogRotationConfig struct {
	MaxSizeMB  int  // Maximum size in MB before rotation
	MaxBackups int  // Maximum number of old log files to retain
	MaxAgeDays int  // Maximum number of days to retain old log files
	Compress   bool // Whether to gzip compress rotated files
}

// RateLimitConfig holds per-client rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     3000,
			LogLevel: "INFO",
		},
		Database: DatabaseConfig{
			Type:            DBTypeSQLite,
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Stats: StatsConfig{
			Endpoint: models.DefaultStatsEndpoint,
		},
		Probe: ProbeConfig{
			TimeoutSeconds: 60,
			Prompt:         "channel test, reply with ok only",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			RPS:     10,
			Burst:   20,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return &ConfigError{Field: "server.trusted_proxies", Message: "not an IP or CIDR: " + p}
			}
		}
	}
	switch c.Database.Type {
	case DBTypeSQLite:
		if c.Database.Path == "" {
			return &ConfigError{Field: "database.path", Message: "required for sqlite"}
		}
	case DBTypePostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return &ConfigError{Field: "database", Message: "host and name are required for postgres"}
		}
	default:
		return &ConfigError{Field: "database.type", Message: "must be sqlite or postgres"}
	}
	if c.APIConfig.Path == "" {
		return &ConfigError{Field: "api_config.path", Message: "required"}
	}
	if c.Stats.Endpoint == "" {
		return &ConfigError{Field: "stats.endpoint", Message: "required"}
	}
	if c.Probe.TimeoutSeconds < 1 {
		return &ConfigError{Field: "probe.timeout_seconds", Message: "must be at least 1"}
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return &ConfigError{Field: "rate_limit", Message: "rps must be positive and burst at least 1"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + ": " + e.Message
}
