// Package testutil provides test utilities and fixtures for the stats dashboard.
package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/user/uniapi-stats/internal/config"
	"github.com/user/uniapi-stats/internal/database"
	"github.com/user/uniapi-stats/internal/models"
	"go.uber.org/zap"
)

// NewTestStore creates a SQLite store in a temp file with the gateway schema.
// The store is closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	s, err := database.NewSQLite(filepath.Join(t.TempDir(), "stats.db"), false)
	require.NoError(t, err, "failed to open test store")
	t.Cleanup(func() {
		s.Close()
	})

	require.NoError(t, database.RunMigrations(s, zap.NewNop()), "failed to create schema")
	return s
}

// RequestRow is one request_stats record as the gateway writes it.
type RequestRow struct {
	RequestID         string
	APIKey            string
	Endpoint          string
	Model             string
	Provider          string
	ProcessTime       float64
	FirstResponseTime float64
	PromptTokens      int64
	CompletionTokens  int64
	Text              string
	Timestamp         time.Time
}

// InsertRequest writes a request record. Empty Endpoint defaults to the
// chat-completions literal and a zero Timestamp to now.
func InsertRequest(t *testing.T, s database.Store, row RequestRow) {
	t.Helper()

	if row.Endpoint == "" {
		row.Endpoint = models.DefaultStatsEndpoint
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}

	var ts any = row.Timestamp.UTC().Format("2006-01-02 15:04:05")
	if s.Kind() == config.DBTypePostgres {
		ts = row.Timestamp.UTC()
	}

	_, err := exec(s, `
		INSERT INTO request_stats (
			request_id, endpoint, client_ip, process_time, first_response_time,
			provider, model, api_key, text,
			prompt_tokens, completion_tokens, total_tokens, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RequestID, row.Endpoint, "127.0.0.1", row.ProcessTime, row.FirstResponseTime,
		row.Provider, row.Model, row.APIKey, row.Text,
		row.PromptTokens, row.CompletionTokens, row.PromptTokens+row.CompletionTokens,
		ts,
	)
	require.NoError(t, err, "failed to insert request row")
}

// InsertOutcome writes a channel_stats outcome for requestID.
func InsertOutcome(t *testing.T, s database.Store, requestID string, success bool) {
	t.Helper()

	var flag any = success
	if s.Kind() == config.DBTypeSQLite {
		flag = 0
		if success {
			flag = 1
		}
	}
	_, err := exec(s,
		`INSERT INTO channel_stats (request_id, provider, model, api_key, success) VALUES (?, '', '', '', ?)`,
		requestID, flag,
	)
	require.NoError(t, err, "failed to insert outcome row")
}

// exec runs a '?' statement against either backend.
func exec(s database.Store, query string, args ...any) (sql.Result, error) {
	if s.Kind() == config.DBTypePostgres {
		query = database.Rebind(query)
	}
	return s.DB().Exec(query, args...)
}

// SeedRequests inserts n records for apiKey one second apart, newest last,
// each with a successful outcome.
func SeedRequests(t *testing.T, s database.Store, apiKey string, n int) {
	t.Helper()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-req-%03d", apiKey, i)
		InsertRequest(t, s, RequestRow{
			RequestID:        id,
			APIKey:           apiKey,
			Model:            "gpt-4o",
			Provider:         "openai",
			ProcessTime:      1,
			PromptTokens:     10,
			CompletionTokens: 5,
			Timestamp:        base.Add(time.Duration(i) * time.Second),
		})
		InsertOutcome(t, s, id, true)
	}
}
