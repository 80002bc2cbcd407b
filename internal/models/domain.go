// Package models defines the domain models for the UniAPI stats dashboard.
package models

import (
	"strings"
	"time"
)

// DefaultStatsEndpoint is the endpoint literal the gateway records for
// chat-completion requests. Only these records are visible to the dashboard.
const DefaultStatsEndpoint = "POST /v1/chat/completions"

// Role represents the role attached to a credential entry.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Credential is one entry of the api_keys list in the operator document.
type Credential struct {
	API  string `json:"api"`
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

// IsAdmin reports whether the credential carries the admin role.
func (c *Credential) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// OverviewStats is the single-row summary for one API key.
// Every field is zero-filled when no record matches.
type OverviewStats struct {
	Requests             int64   `json:"requests"`
	TotalTokens          int64   `json:"totalTokens"`
	PromptTokens         int64   `json:"promptTokens"`
	CompletionTokens     int64   `json:"completionTokens"`
	AvgProcessTime       float64 `json:"avgProcessTime"`
	AvgFirstResponseTime float64 `json:"avgFirstResponseTime"`
}

// GroupStats holds the aggregate counters shared by per-model and
// per-provider breakdown rows.
type GroupStats struct {
	Requests             int64   `json:"requests"`
	Successes            int64   `json:"successes"`
	Failures             int64   `json:"failures"`
	SuccessRate          float64 `json:"successRate"`
	TotalTokens          int64   `json:"totalTokens"`
	PromptTokens         int64   `json:"promptTokens"`
	CompletionTokens     int64   `json:"completionTokens"`
	AvgProcessTime       float64 `json:"avgProcessTime"`
	AvgFirstResponseTime float64 `json:"avgFirstResponseTime"`
}

// ModelStats is one row of the per-model breakdown.
type ModelStats struct {
	Model string `json:"model"`
	GroupStats
}

// ChannelStats is one row of the per-provider breakdown.
type ChannelStats struct {
	Provider string `json:"provider"`
	GroupStats
}

// FilterOptions lists the distinct values a caller can filter logs by.
type FilterOptions struct {
	Models    []string `json:"models"`
	Providers []string `json:"providers"`
}

// LogFilter narrows a log listing. Nil fields are unset.
type LogFilter struct {
	Model    *string
	Provider *string
	// Status is tri-state: nil means all, true success only, false failures only.
	Status *bool
}

// LogQuery is a paginated log request for a single API key.
type LogQuery struct {
	APIKey string
	Page   int
	Limit  int
	LogFilter
}

// LogEntry is one request record as shown in the log browser.
type LogEntry struct {
	Timestamp         time.Time `json:"timestamp"`
	Success           bool      `json:"success"`
	Model             string    `json:"model"`
	Provider          string    `json:"provider"`
	ProcessTime       float64   `json:"processTime"`
	FirstResponseTime float64   `json:"firstResponseTime"`
	PromptTokens      int64     `json:"promptTokens"`
	CompletionTokens  int64     `json:"completionTokens"`
	TotalTokens       int64     `json:"totalTokens"`
	Text              string    `json:"text"`
}

// LogPage is one page of log entries.
type LogPage struct {
	Logs        []*LogEntry `json:"logs"`
	HasNextPage bool        `json:"hasNextPage"`
}

// ModelMapping maps an upstream model name to the name exposed by the gateway.
type ModelMapping struct {
	Original string `json:"original"`
	Display  string `json:"display"`
}

// EndpointStyle is the wire convention an upstream URL speaks.
type EndpointStyle int

const (
	EndpointUnsupported EndpointStyle = iota
	// EndpointChatCompletions uses Authorization: Bearer.
	EndpointChatCompletions
	// EndpointMessages uses x-api-key plus anthropic-version.
	EndpointMessages
)

// ClassifyEndpoint inspects the URL shape. Messages wins when both markers appear.
func ClassifyEndpoint(baseURL string) EndpointStyle {
	switch {
	case strings.Contains(baseURL, "/v1/messages"):
		return EndpointMessages
	case strings.Contains(baseURL, "/chat/completions"):
		return EndpointChatCompletions
	default:
		return EndpointUnsupported
	}
}

// ProviderInfo is a provider entry of the operator document, flattened for
// the channel tester.
type ProviderInfo struct {
	Provider  string         `json:"provider"`
	BaseURL   string         `json:"base_url"`
	API       []string       `json:"api"`
	Models    []ModelMapping `json:"models"`
	Supported bool           `json:"supported"`
}

// ProbeRequest describes a single connectivity test against an upstream.
type ProbeRequest struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// ProbeResult is the outcome of a connectivity test. Failures are reported
// here rather than as errors.
type ProbeResult struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	ResponseTime float64 `json:"responseTime"`
}
