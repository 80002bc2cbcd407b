package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/database"
	"github.com/user/uniapi-stats/internal/version"
	"go.uber.org/zap"
)

const healthTimeout = 3 * time.Second

// HealthHandler handles health check requests.
type HealthHandler struct {
	store  database.Store
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store database.Store, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// Health reports whether the log store answers.
// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := h.ping(ctx); err != nil {
		h.logger.Warn("log store unreachable", zap.Error(err))
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": h.store.Kind(),
		"version":  version.Short(),
	})
}

func (h *HealthHandler) ping(ctx context.Context) error {
	return h.store.Query(ctx, "SELECT 1", nil, func(rows *sql.Rows) error {
		var one int
		return rows.Scan(&one)
	})
}
