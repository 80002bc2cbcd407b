package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"github.com/user/uniapi-stats/internal/models"
	"github.com/user/uniapi-stats/internal/repository"
	"go.uber.org/zap"
)

// LogsHandler handles the paginated request log.
type LogsHandler struct {
	logs   repository.LogRepository
	logger *zap.Logger
}

// NewLogsHandler creates a new LogsHandler.
func NewLogsHandler(logs repository.LogRepository, logger *zap.Logger) *LogsHandler {
	return &LogsHandler{logs: logs, logger: logger}
}

// List returns one page of request records, newest first.
// GET /api/logs?apiKey=&page=&limit=&model=&provider=&status=
func (h *LogsHandler) List(c *gin.Context) {
	q := models.LogQuery{
		APIKey: c.Query(middleware.APIKeyParam),
		Page:   parsePage(c.Query("page")),
		Limit:  parseLimit(c.Query("limit")),
		LogFilter: models.LogFilter{
			Model:    optionalStringParam(c, "model"),
			Provider: optionalStringParam(c, "provider"),
			Status:   ParseStatus(c.Query("status")),
		},
	}

	ctx := c.Request.Context()

	page, err := h.logs.List(ctx, q)
	if err != nil {
		failResponse(c, h.logger, "log query", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// optionalStringParam returns a pointer to the query parameter value if non-empty, nil otherwise.
func optionalStringParam(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return repository.DefaultLogLimit
	}
	return repository.ClampLimit(limit)
}

// ParseStatus reads the tri-state status filter. Only "true" and "false"
// (any case) filter; anything else means unfiltered.
func ParseStatus(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}
