package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"go.uber.org/zap"
)

// errorResponse sends a JSON error response with {error: message} format.
func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// failResponse maps err to a status and a client-safe message. Server-side
// faults are logged with their detail, which never reaches the client.
func failResponse(c *gin.Context, logger *zap.Logger, op string, err error) {
	status, msg := middleware.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed",
			zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(c)),
		)
	}
	errorResponse(c, status, msg)
}
