//go:build !integration && !e2e
// +build !integration,!e2e

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/uniapi-stats/internal/api/middleware"
	"github.com/user/uniapi-stats/internal/apiconfig"
	"github.com/user/uniapi-stats/internal/models"
	"github.com/user/uniapi-stats/internal/repository"
	"github.com/user/uniapi-stats/internal/service"
	"github.com/user/uniapi-stats/internal/testutil"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *testutil.RequestRow) {
	t.Helper()

	logger := zap.NewNop()
	store := testutil.NewTestStore(t)
	docs := apiconfig.NewFile(testutil.WriteAPIConfig(t, testutil.SampleAPIYAML), logger)
	auth := service.NewAuthService(docs, logger)

	row := &testutil.RequestRow{
		RequestID:        "req-1",
		APIKey:           testutil.UserKey,
		Model:            "gpt-4o",
		Provider:         "openai",
		ProcessTime:      1.5,
		PromptTokens:     12,
		CompletionTokens: 8,
		Text:             "hello",
		Timestamp:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	testutil.InsertRequest(t, store, *row)
	testutil.InsertOutcome(t, store, row.RequestID, true)

	srv := NewServer(ServerDeps{
		Store:         store,
		StatsRepo:     repository.NewStatsRepositoryImpl(store, "", logger),
		LogRepo:       repository.NewLogRepositoryImpl(store, "", logger),
		AuthService:   auth,
		ConfigService: service.NewConfigService(docs, auth, logger),
		Probe:         service.NewProviderProbe(2*time.Second, "", logger),
		RateLimit:     middleware.DefaultRateLimitConfig(),
		Logger:        logger,
	})
	return srv, row
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(t)
	key := "?apiKey=" + testutil.UserKey

	tests := []struct {
		method string
		path   string
		body   any
		want   int
	}{
		{http.MethodGet, "/api/health", nil, http.StatusOK},
		{http.MethodGet, "/api/stats/overview" + key, nil, http.StatusOK},
		{http.MethodGet, "/api/stats/models" + key, nil, http.StatusOK},
		{http.MethodGet, "/api/stats/channels" + key, nil, http.StatusOK},
		{http.MethodGet, "/api/filters" + key, nil, http.StatusOK},
		{http.MethodGet, "/api/logs" + key, nil, http.StatusOK},
		{http.MethodPost, "/api/auth/validate-key", map[string]string{"apiKey": testutil.UserKey}, http.StatusOK},
		{http.MethodPost, "/api/auth/available-keys", map[string]string{"adminKey": testutil.AdminKey}, http.StatusOK},
		{http.MethodGet, "/api/config/load?apiKey=" + testutil.AdminKey, nil, http.StatusOK},
		{http.MethodGet, "/api/providers/list" + key, nil, http.StatusOK},
		{http.MethodPost, "/api/providers/list" + key, nil, http.StatusOK},
		{http.MethodGet, "/metrics", nil, http.StatusOK},
		{http.MethodGet, "/api/unknown", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := testutil.Do(srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestServer_LogRowShape(t *testing.T) {
	srv, row := newTestServer(t)

	w := testutil.Do(srv, http.MethodGet, "/api/logs?apiKey="+testutil.UserKey, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Logs []map[string]any `json:"logs"`
	}
	testutil.DecodeJSON(t, w, &page)
	require.Len(t, page.Logs, 1)

	entry := page.Logs[0]
	assert.Equal(t, true, entry["success"])
	assert.Equal(t, row.Model, entry["model"])
	assert.Equal(t, row.Provider, entry["provider"])
	assert.Equal(t, 1.5, entry["processTime"])
	assert.Equal(t, float64(12), entry["promptTokens"])
	assert.Equal(t, float64(8), entry["completionTokens"])
	assert.Equal(t, float64(20), entry["totalTokens"])
	assert.Equal(t, "hello", entry["text"])

	ts, err := time.Parse(time.RFC3339, entry["timestamp"].(string))
	require.NoError(t, err)
	assert.True(t, row.Timestamp.Equal(ts))
}

func TestServer_ProbeAgainstUpstream(t *testing.T) {
	srv, _ := newTestServer(t)

	var gotAuth string
	upstream := testutil.MockUpstreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		testutil.MockUpstreamResponse(http.StatusOK, map[string]any{"choices": []any{}})(w, r)
	})

	w := testutil.Do(srv, http.MethodPost, "/api/providers/test", map[string]string{
		"apiKey":   testutil.UserKey,
		"provider": "local",
		"base_url": upstream.URL + "/v1/chat/completions",
		"api":      "sk-upstream",
		"model":    "gpt-4o",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got models.ProbeResult
	testutil.DecodeJSON(t, w, &got)
	assert.True(t, got.Success, got.Message)
	assert.Equal(t, "Bearer sk-upstream", gotAuth)
}

func TestServer_PanicIsJSON(t *testing.T) {
	logger := zap.NewNop()
	store := testutil.NewTestStore(t)
	docs := apiconfig.NewFile(testutil.WriteAPIConfig(t, testutil.SampleAPIYAML), logger)
	auth := service.NewAuthService(docs, logger)

	// A nil stats repository panics on first use.
	srv := NewServer(ServerDeps{
		Store:         store,
		LogRepo:       repository.NewLogRepositoryImpl(store, "", logger),
		AuthService:   auth,
		ConfigService: service.NewConfigService(docs, auth, logger),
		Probe:         service.NewProviderProbe(time.Second, "", logger),
		Logger:        logger,
	})

	w := testutil.Do(srv, http.MethodGet, "/api/stats/overview?apiKey="+testutil.UserKey, nil)
	testutil.AssertErrorResponse(t, w, http.StatusInternalServerError, "Internal server error")
}

func TestServer_MetricsExposition(t *testing.T) {
	srv, _ := newTestServer(t)
	testutil.Do(srv, http.MethodGet, "/api/health", nil)

	w := testutil.Do(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "uniapi_stats_http_requests_total"))
}

func TestServer_RateLimitUsesPeerAddressByDefault(t *testing.T) {
	logger := zap.NewNop()
	store := testutil.NewTestStore(t)
	docs := apiconfig.NewFile(testutil.WriteAPIConfig(t, testutil.SampleAPIYAML), logger)
	auth := service.NewAuthService(docs, logger)
	limit := middleware.DefaultRateLimitConfig()
	limit.Enabled = true
	limit.RPS = 0.001
	limit.Burst = 1

	srv := NewServer(ServerDeps{
		Store:         store,
		StatsRepo:     repository.NewStatsRepositoryImpl(store, "", logger),
		LogRepo:       repository.NewLogRepositoryImpl(store, "", logger),
		AuthService:   auth,
		ConfigService: service.NewConfigService(docs, auth, logger),
		Probe:         service.NewProviderProbe(time.Second, "", logger),
		RateLimit:     limit,
		Logger:        logger,
	})

	get := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/overview?apiKey="+testutil.UserKey, nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.2"))
}
