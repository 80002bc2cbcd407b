package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/user/uniapi-stats/internal/api"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"github.com/user/uniapi-stats/internal/apiconfig"
	"github.com/user/uniapi-stats/internal/config"
	"github.com/user/uniapi-stats/internal/database"
	"github.com/user/uniapi-stats/internal/repository"
	"github.com/user/uniapi-stats/internal/service"
	"github.com/user/uniapi-stats/internal/version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v":
			fmt.Println(version.Info())
			os.Exit(0)
		case "--init":
			if err := runInit(); err != nil {
				log.Fatalf("init: %v", err)
			}
			os.Exit(0)
		case "--help", "-h":
			printUsage()
			os.Exit(0)
		}
	}
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func printUsage() {
	fmt.Printf("UniAPI Stats - %s\n\n", version.Short())
	fmt.Println("Usage: uniapi-stats [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --init         Generate .env.example configuration template")
	fmt.Println("  --version, -v  Show version information")
	fmt.Println("  --help, -h     Show this help message")
	fmt.Println()
	fmt.Println("Without options, starts the stats dashboard API.")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  Use environment variables or .env file (see .env.example)")
	fmt.Println("  Run 'uniapi-stats --init' to generate configuration template")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Server.LogLevel, getLogDir(), cfg.LogRotation)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting uniapi-stats",
		zap.String("version", version.Short()),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("api_config", cfg.APIConfig.Path),
	)

	// The log store is opened once and shared by every handler.
	store, err := database.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer store.Close()

	if cfg.Database.Bootstrap {
		if err := database.RunMigrations(store, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	docs := apiconfig.NewFile(cfg.APIConfig.Path, logger)
	if _, err := docs.Load(); err != nil {
		// Not fatal: the operator may create or fix the document while we run.
		logger.Warn("operator document not usable yet", zap.Error(err))
	}

	authService := service.NewAuthService(docs, logger)
	configService := service.NewConfigService(docs, authService, logger)
	probe := service.NewProviderProbe(cfg.Probe.Timeout(), cfg.Probe.Prompt, logger)

	rateLimit := middleware.DefaultRateLimitConfig()
	rateLimit.Enabled = cfg.RateLimit.Enabled
	rateLimit.RPS = cfg.RateLimit.RPS
	rateLimit.Burst = cfg.RateLimit.Burst

	server := api.NewServer(api.ServerDeps{
		Store:          store,
		StatsRepo:      repository.NewStatsRepositoryImpl(store, cfg.Stats.Endpoint, logger),
		LogRepo:        repository.NewLogRepositoryImpl(store, cfg.Stats.Endpoint, logger),
		AuthService:    authService,
		ConfigService:  configService,
		Probe:          probe,
		RateLimit:      rateLimit,
		TrustedProxies: cfg.Server.TrustedProxies,
		Logger:         logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Probe.Timeout() + 30*time.Second, // a probe may hold the response for its full timeout
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug", "DEBUG":
		return zap.DebugLevel
	case "warn", "WARN", "warning", "WARNING":
		return zap.WarnLevel
	case "error", "ERROR":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func newLogger(level string, logDir string, rotation config.LogRotationConfig) (*zap.Logger, error) {
	zapLevel := parseLevel(level)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", logDir, err)
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "uniapi-stats.log"),
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
		Compress:   rotation.Compress,
	}

	// File core: JSON for log shippers.
	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.TimeKey = "ts"
	fileEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileEncoderCfg),
		zapcore.AddSync(lj),
		zapLevel,
	)

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderCfg)

	// stdout for DEBUG/INFO, stderr for WARN/ERROR+
	stdoutCore := zapcore.NewCore(
		consoleEncoder,
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapLevel && l < zapcore.WarnLevel
		}),
	)
	stderrCore := zapcore.NewCore(
		consoleEncoder,
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapLevel && l >= zapcore.WarnLevel
		}),
	)

	return zap.New(zapcore.NewTee(fileCore, stdoutCore, stderrCore),
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	), nil
}

func getLogDir() string {
	if dir := os.Getenv("UNIAPI_STATS_LOGS_DIR"); dir != "" {
		return dir
	}
	return "logs"
}
