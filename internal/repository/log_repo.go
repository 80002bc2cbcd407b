package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/user/uniapi-stats/internal/database"
	"github.com/user/uniapi-stats/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultLogLimit is the page size used when the caller gives none.
	DefaultLogLimit = 30
	// MaxLogLimit caps the page size.
	MaxLogLimit = 100
)

// ClampLimit bounds a requested page size to [1, MaxLogLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLogLimit {
		return MaxLogLimit
	}
	return limit
}

// LogRepositoryImpl implements the paginated log browser.
type LogRepositoryImpl struct {
	q        database.Querier
	endpoint string
	logger   *zap.Logger
}

// NewLogRepositoryImpl creates a new LogRepositoryImpl. An empty endpoint
// selects models.DefaultStatsEndpoint.
func NewLogRepositoryImpl(q database.Querier, endpoint string, logger *zap.Logger) *LogRepositoryImpl {
	if endpoint == "" {
		endpoint = models.DefaultStatsEndpoint
	}
	return &LogRepositoryImpl{q: q, endpoint: endpoint, logger: logger}
}

// List returns one page of q.APIKey's records, newest first. It fetches one
// row past the page to decide HasNextPage without a COUNT query.
func (r *LogRepositoryImpl) List(ctx context.Context, q models.LogQuery) (*models.LogPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := ClampLimit(q.Limit)
	offset := (page - 1) * limit

	whereSQL, params := r.buildWhere(q.APIKey, q.LogFilter)

	query := fmt.Sprintf(`
		SELECT
			r.timestamp,
			COALESCE(c.success, 0) AS success,
			COALESCE(r.model, '') AS model,
			COALESCE(r.provider, '') AS provider,
			COALESCE(r.process_time, 0) AS process_time,
			COALESCE(r.first_response_time, 0) AS first_response_time,
			COALESCE(r.prompt_tokens, 0) AS prompt_tokens,
			COALESCE(r.completion_tokens, 0) AS completion_tokens,
			COALESCE(r.total_tokens, 0) AS total_tokens,
			COALESCE(r.text, '') AS text
		FROM request_stats r
		%s
		WHERE %s
		ORDER BY r.timestamp DESC, r.id DESC
		LIMIT ? OFFSET ?`, outcomeJoin, whereSQL)

	params = append(params, limit+1, offset)

	logs := make([]*models.LogEntry, 0, limit+1)
	err := r.q.Query(ctx, query, params, func(rows *sql.Rows) error {
		entry, err := r.scanLog(rows)
		if err != nil {
			return err
		}
		logs = append(logs, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}

	hasNext := len(logs) > limit
	if hasNext {
		logs = logs[:limit]
	}
	return &models.LogPage{Logs: logs, HasNextPage: hasNext}, nil
}

// buildWhere builds the WHERE clause for log queries. The key and endpoint
// predicates are always present; filters are ANDed on.
func (r *LogRepositoryImpl) buildWhere(apiKey string, f models.LogFilter) (string, []any) {
	conditions := []string{"r.api_key = ?", "r.endpoint = ?"}
	params := []any{apiKey, r.endpoint}

	if f.Model != nil {
		conditions = append(conditions, "r.model = ?")
		params = append(params, *f.Model)
	}
	if f.Provider != nil {
		conditions = append(conditions, "r.provider = ?")
		params = append(params, *f.Provider)
	}
	if f.Status != nil {
		conditions = append(conditions, "COALESCE(c.success, 0) = ?")
		params = append(params, boolToInt(*f.Status))
	}

	return strings.Join(conditions, " AND "), params
}

// scanLog scans a row into a LogEntry.
func (r *LogRepositoryImpl) scanLog(rows *sql.Rows) (*models.LogEntry, error) {
	var entry models.LogEntry
	var ts any
	var success int64

	err := rows.Scan(
		&ts, &success, &entry.Model, &entry.Provider,
		&entry.ProcessTime, &entry.FirstResponseTime,
		&entry.PromptTokens, &entry.CompletionTokens, &entry.TotalTokens,
		&entry.Text,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan log: %w", err)
	}

	entry.Timestamp, err = toTime(ts)
	if err != nil {
		r.logger.Warn("unreadable log timestamp", zap.Error(err))
	}
	entry.Success = success == 1
	return &entry, nil
}
