package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/user/uniapi-stats/internal/pkg/paths"
)

// Environment variable names. Keys are the lower-cased names so that the
// same key resolves from the process environment and from a .env file.
const (
	envHost      = "UNIAPI_STATS_HOST"
	envPort      = "UNIAPI_STATS_PORT"
	envLogLevel  = "LOG_LEVEL"
	envProxies   = "UNIAPI_STATS_TRUSTED_PROXIES"
	envAPIYAML   = "API_YAML_PATH"
	envEndpoint  = "STATS_ENDPOINT"
	envDBType    = "STATS_DB_TYPE"
	envDBPath    = "STATS_DB_PATH"
	envDBHost    = "STATS_DB_HOST"
	envDBPort    = "STATS_DB_PORT"
	envDBUser    = "STATS_DB_USER"
	envDBPass    = "STATS_DB_PASSWORD"
	envDBName    = "STATS_DB_NAME"
	envDBSSLMode = "STATS_DB_SSLMODE"
	envDBMaxOpen = "STATS_DB_MAX_OPEN_CONNS"
	envDBMaxIdle = "STATS_DB_MAX_IDLE_CONNS"
	envDBLife    = "STATS_DB_CONN_MAX_LIFETIME"
	envDBBoot    = "STATS_DB_BOOTSTRAP"
	envProbeTO   = "PROBE_TIMEOUT_SECONDS"
	envProbeMsg  = "PROBE_PROMPT"
	envLogSize   = "UNIAPI_STATS_LOG_MAX_SIZE_MB"
	envLogBackup = "UNIAPI_STATS_LOG_MAX_BACKUPS"
	envLogAge    = "UNIAPI_STATS_LOG_MAX_AGE_DAYS"
	envLogGzip   = "UNIAPI_STATS_LOG_COMPRESS"
	envRLEnabled = "UNIAPI_STATS_RATE_LIMIT_ENABLED"
	envRLRPS     = "UNIAPI_STATS_RATE_LIMIT_RPS"
	envRLBurst   = "UNIAPI_STATS_RATE_LIMIT_BURST"
)

// Load loads configuration with 3-tier priority:
// Environment variables > .env file > Default values
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(paths.GetBasePath(), ".env"))
}

// LoadFrom is Load with an explicit .env location. A missing file is not an error.
func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func key(env string) string {
	return strings.ToLower(env)
}

// setDefaults registers every key with its default and binds it to the
// environment variable of the same name.
func setDefaults(v *viper.Viper, d *Config) {
	dataDir := paths.GetDataPath()
	defaults := map[string]any{
		envHost:      d.Server.Host,
		envPort:      d.Server.Port,
		envLogLevel:  d.Server.LogLevel,
		envProxies:   strings.Join(d.Server.TrustedProxies, ","),
		envAPIYAML:   filepath.Join(dataDir, "api.yaml"),
		envEndpoint:  d.Stats.Endpoint,
		envDBType:    d.Database.Type,
		envDBPath:    filepath.Join(dataDir, "stats.db"),
		envDBHost:    d.Database.Host,
		envDBPort:    d.Database.Port,
		envDBUser:    d.Database.User,
		envDBPass:    d.Database.Password,
		envDBName:    d.Database.Name,
		envDBSSLMode: d.Database.SSLMode,
		envDBMaxOpen: d.Database.MaxOpenConns,
		envDBMaxIdle: d.Database.MaxIdleConns,
		envDBLife:    d.Database.ConnMaxLifetime,
		envDBBoot:    d.Database.Bootstrap,
		envProbeTO:   d.Probe.TimeoutSeconds,
		envProbeMsg:  d.Probe.Prompt,
		envLogSize:   d.LogRotation.MaxSizeMB,
		envLogBackup: d.LogRotation.MaxBackups,
		envLogAge:    d.LogRotation.MaxAgeDays,
		envLogGzip:   d.LogRotation.Compress,
		envRLEnabled: d.RateLimit.Enabled,
		envRLRPS:     d.RateLimit.RPS,
		envRLBurst:   d.RateLimit.Burst,
	}
	for env, val := range defaults {
		v.SetDefault(key(env), val)
		_ = v.BindEnv(key(env), env)
	}
}

func fromViper(v *viper.Viper) *Config {
	cfg := DefaultConfig()

	cfg.Server.Host = v.GetString(key(envHost))
	cfg.Server.Port = v.GetInt(key(envPort))
	cfg.Server.LogLevel = v.GetString(key(envLogLevel))
	cfg.Server.TrustedProxies = splitList(v.GetString(key(envProxies)))

	cfg.APIConfig.Path = v.GetString(key(envAPIYAML))
	cfg.Stats.Endpoint = v.GetString(key(envEndpoint))

	cfg.Database.Type = strings.ToLower(strings.TrimSpace(v.GetString(key(envDBType))))
	if cfg.Database.Type == "postgresql" {
		cfg.Database.Type = DBTypePostgres
	}
	cfg.Database.Path = v.GetString(key(envDBPath))
	cfg.Database.Host = v.GetString(key(envDBHost))
	cfg.Database.Port = v.GetInt(key(envDBPort))
	cfg.Database.User = v.GetString(key(envDBUser))
	cfg.Database.Password = v.GetString(key(envDBPass))
	cfg.Database.Name = v.GetString(key(envDBName))
	cfg.Database.SSLMode = v.GetString(key(envDBSSLMode))
	cfg.Database.MaxOpenConns = v.GetInt(key(envDBMaxOpen))
	cfg.Database.MaxIdleConns = v.GetInt(key(envDBMaxIdle))
	cfg.Database.ConnMaxLifetime = v.GetDuration(key(envDBLife))
	cfg.Database.Bootstrap = v.GetBool(key(envDBBoot))

	cfg.Probe.TimeoutSeconds = v.GetInt(key(envProbeTO))
	cfg.Probe.Prompt = v.GetString(key(envProbeMsg))

	cfg.LogRotation.MaxSizeMB = v.GetInt(key(envLogSize))
	cfg.LogRotation.MaxBackups = v.GetInt(key(envLogBackup))
	cfg.LogRotation.MaxAgeDays = v.GetInt(key(envLogAge))
	cfg.LogRotation.Compress = v.GetBool(key(envLogGzip))

	cfg.RateLimit.Enabled = v.GetBool(key(envRLEnabled))
	cfg.RateLimit.RPS = v.GetFloat64(key(envRLRPS))
	cfg.RateLimit.Burst = v.GetInt(key(envRLBurst))

	return cfg
}

// splitList parses a comma-separated env value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
