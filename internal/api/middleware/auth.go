package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/apiconfig"
	"github.com/user/uniapi-stats/internal/models"
	"github.com/user/uniapi-stats/internal/service"
	"go.uber.org/zap"
)

const (
	// APIKeyParam is the query parameter carrying the caller's key.
	APIKeyParam   = "apiKey"
	credentialKey = "credential"
)

// ErrorStatus maps an auth or operator-document error to a status and a
// client-safe message. Unknown and non-admin keys get the same answer.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Unauthorized"
	case errors.Is(err, service.ErrRejectedDocument):
		return http.StatusBadRequest, "Invalid YAML configuration"
	case errors.Is(err, apiconfig.ErrNotFound):
		return http.StatusInternalServerError, "Configuration file not found"
	case errors.Is(err, apiconfig.ErrInvalid), errors.Is(err, apiconfig.ErrSyntax):
		return http.StatusInternalServerError, "Invalid configuration"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// GetCredential retrieves the authenticated credential from context.
func GetCredential(c *gin.Context) *models.Credential {
	v, ok := c.Get(credentialKey)
	if !ok {
		return nil
	}
	cred, ok := v.(*models.Credential)
	if !ok {
		return nil
	}
	return cred
}

// RequireKey is a middleware that requires ?apiKey= to resolve to a credential.
func RequireKey(auth *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return requireCredential(logger, auth.Authenticate)
}

// RequireAdmin is a middleware that requires ?apiKey= to be an admin key.
func RequireAdmin(auth *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return requireCredential(logger, auth.RequireAdmin)
}

func requireCredential(logger *zap.Logger, check func(string) (*models.Credential, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Query(APIKeyParam)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "API Key is required"})
			return
		}

		cred, err := check(key)
		if err != nil {
			status, msg := ErrorStatus(err)
			if status >= http.StatusInternalServerError {
				logger.Error("credential check failed", zap.Error(err), zap.String("request_id", GetRequestID(c)))
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(credentialKey, cred)
		c.Next()
	}
}
