package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"github.com/user/uniapi-stats/internal/repository"
	"go.uber.org/zap"
)

// StatsHandler serves the aggregate views. Routes sit behind
// middleware.RequireKey, so the apiKey query parameter is already resolved.
type StatsHandler struct {
	stats  repository.StatsRepository
	logger *zap.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats repository.StatsRepository, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// Overview returns the summary row.
// GET /api/stats/overview?apiKey=
func (h *StatsHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	overview, err := h.stats.Overview(ctx, c.Query(middleware.APIKeyParam))
	if err != nil {
		failResponse(c, h.logger, "overview query", err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// Models returns the per-model breakdown.
// GET /api/stats/models?apiKey=
func (h *StatsHandler) Models(c *gin.Context) {
	ctx := c.Request.Context()

	rows, err := h.stats.ByModel(ctx, c.Query(middleware.APIKeyParam))
	if err != nil {
		failResponse(c, h.logger, "model breakdown query", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Channels returns the per-provider breakdown.
// GET /api/stats/channels?apiKey=
func (h *StatsHandler) Channels(c *gin.Context) {
	ctx := c.Request.Context()

	rows, err := h.stats.ByProvider(ctx, c.Query(middleware.APIKeyParam))
	if err != nil {
		failResponse(c, h.logger, "channel breakdown query", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Filters returns the distinct models and providers seen for the key.
// GET /api/filters?apiKey=
func (h *StatsHandler) Filters(c *gin.Context) {
	ctx := c.Request.Context()

	opts, err := h.stats.FilterOptions(ctx, c.Query(middleware.APIKeyParam))
	if err != nil {
		failResponse(c, h.logger, "filter options query", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}
