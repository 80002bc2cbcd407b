package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/user/uniapi-stats/internal/database"
	"github.com/user/uniapi-stats/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatsRepositoryImpl implements the aggregation queries. Every query is
// restricted to one api_key and one endpoint literal.
type StatsRepositoryImpl struct {
	q        database.Querier
	endpoint string
	logger   *zap.Logger
}

// NewStatsRepositoryImpl creates a new StatsRepositoryImpl. An empty endpoint
// selects models.DefaultStatsEndpoint.
func NewStatsRepositoryImpl(q database.Querier, endpoint string, logger *zap.Logger) *StatsRepositoryImpl {
	if endpoint == "" {
		endpoint = models.DefaultStatsEndpoint
	}
	return &StatsRepositoryImpl{q: q, endpoint: endpoint, logger: logger}
}

// Overview returns the zero-filled totals for apiKey.
func (r *StatsRepositoryImpl) Overview(ctx context.Context, apiKey string) (*models.OverviewStats, error) {
	const query = `
		SELECT
			COUNT(*) AS requests,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
			COALESCE(SUM(completion_tokens), 0) AS completion_tokens,
			COALESCE(AVG(process_time), 0) AS avg_process_time,
			COALESCE(AVG(first_response_time), 0) AS avg_first_response_time
		FROM request_stats
		WHERE api_key = ? AND endpoint = ?`

	stats := &models.OverviewStats{}
	err := r.q.Query(ctx, query, []any{apiKey, r.endpoint}, func(rows *sql.Rows) error {
		return rows.Scan(
			&stats.Requests, &stats.TotalTokens, &stats.PromptTokens,
			&stats.CompletionTokens, &stats.AvgProcessTime, &stats.AvgFirstResponseTime,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get overview statistics: %w", err)
	}
	return stats, nil
}

// ByModel returns one row per model, busiest first.
func (r *StatsRepositoryImpl) ByModel(ctx context.Context, apiKey string) ([]*models.ModelStats, error) {
	result := make([]*models.ModelStats, 0)
	err := r.grouped(ctx, "model", apiKey, func(name string, g models.GroupStats) {
		result = append(result, &models.ModelStats{Model: name, GroupStats: g})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get model statistics: %w", err)
	}
	return result, nil
}

// ByProvider returns one row per provider (channel), busiest first.
func (r *StatsRepositoryImpl) ByProvider(ctx context.Context, apiKey string) ([]*models.ChannelStats, error) {
	result := make([]*models.ChannelStats, 0)
	err := r.grouped(ctx, "provider", apiKey, func(name string, g models.GroupStats) {
		result = append(result, &models.ChannelStats{Provider: name, GroupStats: g})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get channel statistics: %w", err)
	}
	return result, nil
}

// grouped runs the breakdown query for column, which must be a trusted
// column name, and hands each row to emit in result order. Records with no
// value in column are left out, as they are from FilterOptions.
func (r *StatsRepositoryImpl) grouped(ctx context.Context, column, apiKey string, emit func(string, models.GroupStats)) error {
	query := fmt.Sprintf(`
		SELECT
			r.%[1]s AS name,
			COUNT(*) AS requests,
			COALESCE(SUM(COALESCE(c.success, 0)), 0) AS successes,
			COALESCE(SUM(r.total_tokens), 0) AS total_tokens,
			COALESCE(SUM(r.prompt_tokens), 0) AS prompt_tokens,
			COALESCE(SUM(r.completion_tokens), 0) AS completion_tokens,
			COALESCE(AVG(r.process_time), 0) AS avg_process_time,
			COALESCE(AVG(r.first_response_time), 0) AS avg_first_response_time
		FROM request_stats r
		%[2]s
		WHERE r.api_key = ? AND r.endpoint = ? AND r.%[1]s IS NOT NULL
		GROUP BY r.%[1]s
		ORDER BY requests DESC`, column, outcomeJoin)

	return r.q.Query(ctx, query, []any{apiKey, r.endpoint}, func(rows *sql.Rows) error {
		var name string
		var g models.GroupStats
		if err := rows.Scan(
			&name, &g.Requests, &g.Successes,
			&g.TotalTokens, &g.PromptTokens, &g.CompletionTokens,
			&g.AvgProcessTime, &g.AvgFirstResponseTime,
		); err != nil {
			return err
		}
		g.Failures = g.Requests - g.Successes
		g.SuccessRate = successRate(g.Successes, g.Requests)
		emit(name, g)
		return nil
	})
}

// FilterOptions returns the distinct models and providers seen for apiKey.
// The two lists are independent and fetched concurrently.
func (r *StatsRepositoryImpl) FilterOptions(ctx context.Context, apiKey string) (*models.FilterOptions, error) {
	opts := &models.FilterOptions{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := r.distinct(gctx, "model", apiKey)
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}
		opts.Models = values
		return nil
	})
	g.Go(func() error {
		values, err := r.distinct(gctx, "provider", apiKey)
		if err != nil {
			return fmt.Errorf("failed to list providers: %w", err)
		}
		opts.Providers = values
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (r *StatsRepositoryImpl) distinct(ctx context.Context, column, apiKey string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %[1]s
		FROM request_stats
		WHERE api_key = ? AND endpoint = ? AND %[1]s IS NOT NULL`, column)

	values := make([]string, 0)
	err := r.q.Query(ctx, query, []any{apiKey, r.endpoint}, func(rows *sql.Rows) error {
		var v string
		if err := rows.Scan(&v); err != nil {
			return err
		}
		values = append(values, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Byte order, independent of the backend collation.
	sort.Strings(values)
	return values, nil
}
