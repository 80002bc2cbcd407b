package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/uniapi-stats/internal/api/handler"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"github.com/user/uniapi-stats/internal/database"
	"github.com/user/uniapi-stats/internal/repository"
	"github.com/user/uniapi-stats/internal/service"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and dependencies.
type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// ServerDeps holds all dependencies for the API server.
type ServerDeps struct {
	Store          database.Store
	StatsRepo      repository.StatsRepository
	LogRepo        repository.LogRepository
	AuthService    *service.AuthService
	ConfigService  *service.ConfigService
	Probe          handler.Prober
	RateLimit      *middleware.RateLimitConfig
	// TrustedProxies feed gin's client IP resolution. Nil trusts none.
	TrustedProxies []string
	Logger         *zap.Logger
}

// NewServer creates a new API server with all routes configured.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	authService := deps.AuthService

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		logger.Error("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	// Global middleware.
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(deps.RateLimit))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Health check (no auth).
	healthHandler := handler.NewHealthHandler(deps.Store, logger)
	api.GET("/health", healthHandler.Health)

	// Read-only views, scoped to the key in ?apiKey=.
	statsHandler := handler.NewStatsHandler(deps.StatsRepo, logger)
	logsHandler := handler.NewLogsHandler(deps.LogRepo, logger)
	keyed := api.Group("")
	keyed.Use(middleware.RequireKey(authService, logger))
	{
		keyed.GET("/stats/overview", statsHandler.Overview)
		keyed.GET("/stats/models", statsHandler.Models)
		keyed.GET("/stats/channels", statsHandler.Channels)
		keyed.GET("/filters", statsHandler.Filters)
		keyed.GET("/logs", logsHandler.List)
	}

	// Auth endpoints. Keys travel in the body.
	authHandler := handler.NewAuthHandler(authService, logger)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/validate-key", authHandler.ValidateKey)
		authGroup.POST("/available-keys", authHandler.AvailableKeys)
	}

	// Operator document editor (admin only, checked per call).
	configHandler := handler.NewConfigHandler(deps.ConfigService, logger)
	configGroup := api.Group("/config")
	{
		configGroup.GET("/load", configHandler.Load)
		configGroup.POST("/save", configHandler.Save)
	}

	// Channel tester.
	providersHandler := handler.NewProvidersHandler(deps.ConfigService, authService, deps.Probe, logger)
	providerGroup := api.Group("/providers")
	{
		providerGroup.GET("/list", providersHandler.List)
		providerGroup.POST("/list", providersHandler.List)
		providerGroup.POST("/test", providersHandler.Test)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return &Server{
		router: r,
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run starts the HTTP server.
func (s *Server) Run(addr string) error {
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.router.Run(addr)
}
