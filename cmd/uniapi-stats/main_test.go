package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/uniapi-stats/internal/config"
	"go.uber.org/zap/zapcore"
)

func testRotationConfig() config.LogRotationConfig {
	return config.LogRotationConfig{
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Compress:   false,
	}
}

func TestNewLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := newLogger("INFO", tmpDir, testRotationConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("test message")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(tmpDir, "uniapi-stats.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"test message"`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"DEBUG":   zapcore.DebugLevel,
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"invalid": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewLoggerCreatesDir(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := newLogger("INFO", tmpDir, testRotationConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)

	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestGetLogDir(t *testing.T) {
	t.Setenv("UNIAPI_STATS_LOGS_DIR", "")
	require.Equal(t, "logs", getLogDir())

	t.Setenv("UNIAPI_STATS_LOGS_DIR", "/tmp/custom-logs")
	require.Equal(t, "/tmp/custom-logs", getLogDir())
}

func TestEnvExampleLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(envExampleContent), 0644))

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, config.DBTypeSQLite, cfg.Database.Type)
	assert.Equal(t, "POST /v1/chat/completions", cfg.Stats.Endpoint)
	assert.True(t, strings.HasSuffix(cfg.APIConfig.Path, "api.yaml"))
}
