package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"github.com/user/uniapi-stats/internal/service"
	"go.uber.org/zap"
)

// ConfigHandler serves the operator document editor.
type ConfigHandler struct {
	config *service.ConfigService
	logger *zap.Logger
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(config *service.ConfigService, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{config: config, logger: logger}
}

// SaveConfigRequest is the request body for saving the document.
type SaveConfigRequest struct {
	APIKey string  `json:"apiKey"`
	Config *string `json:"config"`
}

// Load returns the raw document text.
// GET /api/config/load?apiKey=
func (h *ConfigHandler) Load(c *gin.Context) {
	key := c.Query(middleware.APIKeyParam)
	if key == "" {
		errorResponse(c, http.StatusBadRequest, "API Key is required")
		return
	}

	raw, err := h.config.LoadRaw(key)
	if err != nil {
		failResponse(c, h.logger, "config load", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": raw})
}

// Save replaces the document after checking that it parses.
// POST /api/config/save
func (h *ConfigHandler) Save(c *gin.Context) {
	var req SaveConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.APIKey == "" {
		errorResponse(c, http.StatusBadRequest, "API Key is required")
		return
	}
	if req.Config == nil {
		errorResponse(c, http.StatusBadRequest, "Config content is required")
		return
	}

	if err := h.config.Save(req.APIKey, *req.Config); err != nil {
		failResponse(c, h.logger, "config save", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
