package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"github.com/user/uniapi-stats/internal/models"
	"github.com/user/uniapi-stats/internal/service"
	"go.uber.org/zap"
)

// Prober runs one connectivity test. *service.ProviderProbe implements it.
type Prober interface {
	Test(ctx context.Context, req models.ProbeRequest) *models.ProbeResult
}

// ProvidersHandler serves the channel tester.
type ProvidersHandler struct {
	config *service.ConfigService
	auth   *service.AuthService
	probe  Prober
	logger *zap.Logger
}

// NewProvidersHandler creates a new ProvidersHandler.
func NewProvidersHandler(config *service.ConfigService, auth *service.AuthService, probe Prober, logger *zap.Logger) *ProvidersHandler {
	return &ProvidersHandler{config: config, auth: auth, probe: probe, logger: logger}
}

// TestProviderRequest is the request body for a connectivity test.
type TestProviderRequest struct {
	APIKey   string `json:"apiKey"`
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	API      string `json:"api"`
	Model    string `json:"model"`
}

// List returns the provider catalog with the computed supported flag.
// GET|POST /api/providers/list?apiKey=
func (h *ProvidersHandler) List(c *gin.Context) {
	key := c.Query(middleware.APIKeyParam)
	if key == "" {
		errorResponse(c, http.StatusBadRequest, "API Key is required")
		return
	}

	providers, err := h.config.Providers(key)
	if err != nil {
		failResponse(c, h.logger, "provider listing", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// Test sends one probe request upstream. Probe failures are reported in a
// 200 body, never as an HTTP error.
// POST /api/providers/test
func (h *ProvidersHandler) Test(c *gin.Context) {
	var req TestProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ProbeResult{Message: "Invalid request body"})
		return
	}
	if req.APIKey == "" || req.BaseURL == "" || req.API == "" || req.Model == "" {
		c.JSON(http.StatusBadRequest, models.ProbeResult{Message: "Missing required parameters"})
		return
	}

	if _, err := h.auth.Authenticate(req.APIKey); err != nil {
		failResponse(c, h.logger, "probe authorization", err)
		return
	}

	result := h.probe.Test(c.Request.Context(), models.ProbeRequest{
		Provider: req.Provider,
		BaseURL:  req.BaseURL,
		APIKey:   req.API,
		Model:    req.Model,
	})
	c.JSON(http.StatusOK, result)
}
