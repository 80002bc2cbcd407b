//go:build !integration && !e2e
// +build !integration,!e2e

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/uniapi-stats/internal/models"
	"github.com/user/uniapi-stats/internal/testutil"
	"go.uber.org/zap"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{30, 30},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "limit %d", tt.in)
	}
}

func TestLogRepository_List_Pagination(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		page     int
		limit    int
		wantLen  int
		wantNext bool
	}{
		{"31 rows page 1", 31, 1, 30, 30, true},
		{"31 rows page 2", 31, 2, 30, 1, false},
		{"30 rows page 1", 30, 1, 30, 30, false},
		{"empty", 0, 1, 30, 0, false},
		{"page past the end", 5, 3, 30, 0, false},
		{"limit clamped up", 3, 1, 0, 1, true},
		{"limit clamped down", 120, 1, 500, 100, true},
		{"page below one", 3, -2, 2, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewTestStore(t)
			testutil.SeedRequests(t, s, keyA, tt.rows)
			repo := NewLogRepositoryImpl(s, "", zap.NewNop())

			page, err := repo.List(context.Background(), models.LogQuery{
				APIKey: keyA,
				Page:   tt.page,
				Limit:  tt.limit,
			})
			require.NoError(t, err)
			assert.Len(t, page.Logs, tt.wantLen)
			assert.Equal(t, tt.wantNext, page.HasNextPage)
			assert.NotNil(t, page.Logs)
		})
	}
}

func TestLogRepository_List_NewestFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedRequests(t, s, keyA, 5)
	repo := NewLogRepositoryImpl(s, "", zap.NewNop())

	page, err := repo.List(context.Background(), models.LogQuery{APIKey: keyA, Page: 1, Limit: 30})
	require.NoError(t, err)
	require.Len(t, page.Logs, 5)

	for i := 1; i < len(page.Logs); i++ {
		assert.True(t, page.Logs[i-1].Timestamp.After(page.Logs[i].Timestamp),
			"row %d should be newer than row %d", i-1, i)
	}
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 4, 0, time.UTC), page.Logs[0].Timestamp.UTC())
}

func TestLogRepository_List_PagesDoNotOverlap(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedRequests(t, s, keyA, 7)
	repo := NewLogRepositoryImpl(s, "", zap.NewNop())
	ctx := context.Background()

	seen := map[time.Time]bool{}
	for p := 1; p <= 4; p++ {
		page, err := repo.List(ctx, models.LogQuery{APIKey: keyA, Page: p, Limit: 2})
		require.NoError(t, err)
		for _, entry := range page.Logs {
			assert.False(t, seen[entry.Timestamp], "duplicate row across pages")
			seen[entry.Timestamp] = true
		}
		assert.Equal(t, p < 4, page.HasNextPage)
	}
	assert.Len(t, seen, 7)
}

func TestLogRepository_List_Fields(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.InsertRequest(t, s, testutil.RequestRow{
		RequestID:         "r1",
		APIKey:            keyA,
		Model:             "gpt-4o",
		Provider:          "openai",
		ProcessTime:       1.5,
		FirstResponseTime: 0.25,
		PromptTokens:      12,
		CompletionTokens:  30,
		Text:              "hello",
		Timestamp:         time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC),
	})
	testutil.InsertOutcome(t, s, "r1", true)
	repo := NewLogRepositoryImpl(s, "", zap.NewNop())

	page, err := repo.List(context.Background(), models.LogQuery{APIKey: keyA, Page: 1, Limit: 30})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)

	entry := page.Logs[0]
	assert.True(t, entry.Success)
	assert.Equal(t, "gpt-4o", entry.Model)
	assert.Equal(t, "openai", entry.Provider)
	assert.Equal(t, 1.5, entry.ProcessTime)
	assert.Equal(t, 0.25, entry.FirstResponseTime)
	assert.Equal(t, int64(12), entry.PromptTokens)
	assert.Equal(t, int64(30), entry.CompletionTokens)
	assert.Equal(t, int64(42), entry.TotalTokens)
	assert.Equal(t, "hello", entry.Text)
	assert.Equal(t, time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC), entry.Timestamp.UTC())
}

// seedStatusMix writes ok, failed, missing-outcome and duplicated-outcome
// records for keyA across two models.
func seedStatusMix(t *testing.T) *LogRepositoryImpl {
	t.Helper()
	s := testutil.NewTestStore(t)
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	add := func(id, model, provider string, offset int) {
		testutil.InsertRequest(t, s, testutil.RequestRow{
			RequestID: id,
			APIKey:    keyA,
			Model:     model,
			Provider:  provider,
			Timestamp: base.Add(time.Duration(offset) * time.Second),
		})
	}
	add("ok-1", "gpt-4o", "openai", 1)
	add("fail-1", "gpt-4o", "openai", 2)
	add("none-1", "claude", "anthro", 3)
	add("dup-1", "claude", "anthro", 4)
	add("other-endpoint", "gpt-4o", "openai", 5)

	testutil.InsertOutcome(t, s, "ok-1", true)
	testutil.InsertOutcome(t, s, "fail-1", false)
	testutil.InsertOutcome(t, s, "dup-1", false)
	testutil.InsertOutcome(t, s, "dup-1", true)

	testutil.InsertRequest(t, s, testutil.RequestRow{RequestID: "b-1", APIKey: keyB, Model: "gpt-4o", Provider: "openai", Timestamp: base})
	testutil.InsertOutcome(t, s, "b-1", true)

	_, err := s.DB().Exec(`UPDATE request_stats SET endpoint = 'POST /v1/embeddings' WHERE request_id = 'other-endpoint'`)
	require.NoError(t, err)

	return NewLogRepositoryImpl(s, "", zap.NewNop())
}

func TestLogRepository_List_Filters(t *testing.T) {
	repo := seedStatusMix(t)

	tests := []struct {
		name        string
		filter      models.LogFilter
		wantCount   int
		wantSuccess *bool
	}{
		{"no filter", models.LogFilter{}, 4, nil},
		{"success only", models.LogFilter{Status: testutil.Ptr(true)}, 2, testutil.Ptr(true)},
		{"failures only", models.LogFilter{Status: testutil.Ptr(false)}, 2, testutil.Ptr(false)},
		{"by model", models.LogFilter{Model: testutil.Ptr("claude")}, 2, nil},
		{"by provider", models.LogFilter{Provider: testutil.Ptr("openai")}, 2, nil},
		{"model and status", models.LogFilter{Model: testutil.Ptr("claude"), Status: testutil.Ptr(false)}, 1, testutil.Ptr(false)},
		{"model and provider mismatch", models.LogFilter{Model: testutil.Ptr("claude"), Provider: testutil.Ptr("openai")}, 0, nil},
		{"unknown model", models.LogFilter{Model: testutil.Ptr("nope")}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(context.Background(), models.LogQuery{
				APIKey:    keyA,
				Page:      1,
				Limit:     30,
				LogFilter: tt.filter,
			})
			require.NoError(t, err)
			assert.Len(t, page.Logs, tt.wantCount)
			assert.False(t, page.HasNextPage)
			if tt.wantSuccess != nil {
				for _, entry := range page.Logs {
					assert.Equal(t, *tt.wantSuccess, entry.Success)
				}
			}
		})
	}
}

func TestLogRepository_List_OutcomeCoalescing(t *testing.T) {
	repo := seedStatusMix(t)

	page, err := repo.List(context.Background(), models.LogQuery{APIKey: keyA, Page: 1, Limit: 30})
	require.NoError(t, err)
	require.Len(t, page.Logs, 4, "duplicated outcomes must not duplicate the request")

	// Newest first: dup-1, none-1, fail-1, ok-1.
	got := make([]bool, 0, len(page.Logs))
	for _, entry := range page.Logs {
		got = append(got, entry.Success)
	}
	assert.Equal(t, []bool{true, false, false, true}, got)
}

func TestLogRepository_List_KeyIsolation(t *testing.T) {
	repo := seedStatusMix(t)

	page, err := repo.List(context.Background(), models.LogQuery{APIKey: keyB, Page: 1, Limit: 30})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.True(t, page.Logs[0].Success)

	page, err = repo.List(context.Background(), models.LogQuery{APIKey: "sk-unknown", Page: 1, Limit: 30})
	require.NoError(t, err)
	assert.Empty(t, page.Logs)
}

func TestLogRepository_BuildWhere(t *testing.T) {
	repo := NewLogRepositoryImpl(nil, "", zap.NewNop())

	where, params := repo.buildWhere(keyA, models.LogFilter{})
	assert.Equal(t, "r.api_key = ? AND r.endpoint = ?", where)
	assert.Equal(t, []any{keyA, models.DefaultStatsEndpoint}, params)

	where, params = repo.buildWhere(keyA, models.LogFilter{
		Model:    testutil.Ptr("m"),
		Provider: testutil.Ptr("p"),
		Status:   testutil.Ptr(false),
	})
	assert.Equal(t, "r.api_key = ? AND r.endpoint = ? AND r.model = ? AND r.provider = ? AND COALESCE(c.success, 0) = ?", where)
	assert.Equal(t, []any{keyA, models.DefaultStatsEndpoint, "m", "p", 0}, params)
}

func TestToTime(t *testing.T) {
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   any
	}{
		{"time", want},
		{"sqlite text", "2025-01-02 03:04:05"},
		{"iso", "2025-01-02T03:04:05Z"},
		{"bytes", []byte("2025-01-02 03:04:05")},
		{"unix", want.Unix()},
		{"unix text", fmt.Sprint(want.Unix())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toTime(tt.in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %v", got)
		})
	}

	_, err := toTime(struct{}{})
	assert.Error(t, err)
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, successRate(0, 0))
	assert.Equal(t, 0.5, successRate(1, 2))
	assert.Equal(t, 1.0, successRate(3, 3))
}
