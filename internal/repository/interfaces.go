// Package repository defines the read-only queries over the gateway log store.
package repository

import (
	"context"

	"github.com/user/uniapi-stats/internal/models"
)

// StatsRepository provides the aggregate views of one API key's traffic.
type StatsRepository interface {
	Overview(ctx context.Context, apiKey string) (*models.OverviewStats, error)
	ByModel(ctx context.Context, apiKey string) ([]*models.ModelStats, error)
	ByProvider(ctx context.Context, apiKey string) ([]*models.ChannelStats, error)
	FilterOptions(ctx context.Context, apiKey string) (*models.FilterOptions, error)
}

// LogRepository provides paginated access to individual request records.
type LogRepository interface {
	List(ctx context.Context, q models.LogQuery) (*models.LogPage, error)
}
