package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/user/uniapi-stats/internal/models"
	"go.uber.org/zap"
)

const (
	anthropicVersion = "2023-06-01"
	// Upstream error bodies are cut to this many characters.
	maxErrorBodyChars = 200
	maxBodyBytes      = 64 << 10

	DefaultProbePrompt = "channel test, reply with ok only"
)

// ProviderProbe sends one synthetic chat request to an upstream and reports
// how it went. Probes are never retried.
type ProviderProbe struct {
	client  *http.Client
	timeout time.Duration
	prompt  string
	logger  *zap.Logger
}

// NewProviderProbe creates a new ProviderProbe. The timeout bounds the whole
// exchange including reading the response.
func NewProviderProbe(timeout time.Duration, prompt string, logger *zap.Logger) *ProviderProbe {
	if prompt == "" {
		prompt = DefaultProbePrompt
	}
	return &ProviderProbe{
		// The per-call context owns the deadline.
		client:  &http.Client{},
		timeout: timeout,
		prompt:  prompt,
		logger:  logger,
	}
}

type probeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type probePayload struct {
	Model     string         `json:"model"`
	Messages  []probeMessage `json:"messages"`
	MaxTokens int            `json:"max_tokens,omitempty"`
}

// Test runs the probe. Every failure is reported in the result; Test never
// returns an error.
func (p *ProviderProbe) Test(ctx context.Context, req models.ProbeRequest) *models.ProbeResult {
	style := models.ClassifyEndpoint(req.BaseURL)
	if style == models.EndpointUnsupported {
		probeTotal.WithLabelValues("unsupported").Inc()
		return &models.ProbeResult{Success: false, Message: "unsupported endpoint type"}
	}

	payload := probePayload{
		Model:    req.Model,
		Messages: []probeMessage{{Role: "user", Content: p.prompt}},
	}
	if style == models.EndpointMessages {
		// The messages API rejects requests without max_tokens.
		payload.MaxTokens = 16
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &models.ProbeResult{Success: false, Message: fmt.Sprintf("failed to encode request: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.BaseURL, bytes.NewReader(body))
	if err != nil {
		probeTotal.WithLabelValues("network_error").Inc()
		return &models.ProbeResult{Success: false, Message: "network error: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if style == models.EndpointMessages {
		httpReq.Header.Set("x-api-key", req.APIKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	start := time.Now()
	result := p.do(httpReq)
	elapsed := time.Since(start)
	result.ResponseTime = elapsed.Seconds()
	probeDuration.Observe(result.ResponseTime)

	p.logger.Info("provider probe finished",
		zap.String("provider", req.Provider),
		zap.String("model", req.Model),
		zap.Bool("success", result.Success),
		zap.Duration("elapsed", elapsed),
	)
	return result
}

func (p *ProviderProbe) do(req *http.Request) *models.ProbeResult {
	resp, err := p.client.Do(req)
	if err != nil {
		return p.transportFailure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return p.transportFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		probeTotal.WithLabelValues("http_error").Inc()
		return &models.ProbeResult{
			Success: false,
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncateChars(string(data), maxErrorBodyChars)),
		}
	}

	probeTotal.WithLabelValues("success").Inc()
	return &models.ProbeResult{Success: true, Message: "test succeeded"}
}

func (p *ProviderProbe) transportFailure(err error) *models.ProbeResult {
	if isTimeoutError(err) {
		probeTotal.WithLabelValues("timeout").Inc()
		return &models.ProbeResult{
			Success: false,
			Message: fmt.Sprintf("request timed out (%s)", formatTimeout(p.timeout)),
		}
	}
	probeTotal.WithLabelValues("network_error").Inc()
	return &models.ProbeResult{Success: false, Message: "network error: " + err.Error()}
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func formatTimeout(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
	return d.String()
}

// truncateChars keeps at most n characters of s without splitting a rune.
func truncateChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
