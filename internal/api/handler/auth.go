package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/models"
	"github.com/user/uniapi-stats/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles key validation and the admin key list.
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// ValidateKeyRequest is the request body for key validation.
type ValidateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateKeyResponse reports whether a key is known, and its role if so.
type ValidateKeyResponse struct {
	Valid bool        `json:"valid"`
	Role  models.Role `json:"role,omitempty"`
}

// AvailableKeysRequest is the request body for the admin key list.
type AvailableKeysRequest struct {
	AdminKey string `json:"adminKey"`
}

// ValidateKey tells the dashboard whether a key may log in.
// POST /api/auth/validate-key
func (h *AuthHandler) ValidateKey(c *gin.Context) {
	var req ValidateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.APIKey == "" {
		errorResponse(c, http.StatusBadRequest, "API Key is required")
		return
	}

	role, err := h.auth.ResolveRole(req.APIKey)
	if errors.Is(err, service.ErrUnauthorized) {
		c.JSON(http.StatusOK, ValidateKeyResponse{Valid: false})
		return
	}
	if err != nil {
		failResponse(c, h.logger, "key validation", err)
		return
	}

	c.JSON(http.StatusOK, ValidateKeyResponse{Valid: true, Role: role})
}

// AvailableKeys lists every configured key for the admin "view as" picker.
// POST /api/auth/available-keys
func (h *AuthHandler) AvailableKeys(c *gin.Context) {
	var req AvailableKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AdminKey == "" {
		errorResponse(c, http.StatusBadRequest, "Admin Key is required")
		return
	}

	keys, err := h.auth.AvailableKeys(req.AdminKey)
	if err != nil {
		failResponse(c, h.logger, "key listing", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}
