//go:build !integration && !e2e
// +build !integration,!e2e

package handler

import (
	"context"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"github.com/user/uniapi-stats/internal/apiconfig"
	"github.com/user/uniapi-stats/internal/database"
	"github.com/user/uniapi-stats/internal/models"
	"github.com/user/uniapi-stats/internal/repository"
	"github.com/user/uniapi-stats/internal/service"
	"github.com/user/uniapi-stats/internal/testutil"
	"go.uber.org/zap"
)

type fakeProber struct {
	mu     sync.Mutex
	calls  []models.ProbeRequest
	result *models.ProbeResult
}

func (f *fakeProber) Test(_ context.Context, req models.ProbeRequest) *models.ProbeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.result
}

type testEnv struct {
	store   *database.SQLiteStore
	docPath string
	probe   *fakeProber
	router  *gin.Engine
}

// newTestEnv wires every handler against a temp store and operator document,
// mounted the way the server mounts them.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	store := testutil.NewTestStore(t)
	docPath := testutil.WriteAPIConfig(t, testutil.SampleAPIYAML)
	docs := apiconfig.NewFile(docPath, logger)
	auth := service.NewAuthService(docs, logger)
	configSvc := service.NewConfigService(docs, auth, logger)
	probe := &fakeProber{result: &models.ProbeResult{Success: true, Message: "test succeeded", ResponseTime: 0.25}}

	stats := NewStatsHandler(repository.NewStatsRepositoryImpl(store, "", logger), logger)
	logs := NewLogsHandler(repository.NewLogRepositoryImpl(store, "", logger), logger)
	authHandler := NewAuthHandler(auth, logger)
	configHandler := NewConfigHandler(configSvc, logger)
	providers := NewProvidersHandler(configSvc, auth, probe, logger)
	health := NewHealthHandler(store, logger)

	r := testutil.NewTestRouter()
	r.Use(middleware.RequestID())

	api := r.Group("/api")
	api.GET("/health", health.Health)

	keyed := api.Group("", middleware.RequireKey(auth, logger))
	keyed.GET("/stats/overview", stats.Overview)
	keyed.GET("/stats/models", stats.Models)
	keyed.GET("/stats/channels", stats.Channels)
	keyed.GET("/filters", stats.Filters)
	keyed.GET("/logs", logs.List)

	api.POST("/auth/validate-key", authHandler.ValidateKey)
	api.POST("/auth/available-keys", authHandler.AvailableKeys)
	api.GET("/config/load", configHandler.Load)
	api.POST("/config/save", configHandler.Save)
	api.GET("/providers/list", providers.List)
	api.POST("/providers/list", providers.List)
	api.POST("/providers/test", providers.Test)

	return &testEnv{store: store, docPath: docPath, probe: probe, router: r}
}
