package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	AdminKey = "sk-admin-0001"
	UserKey  = "sk-user-0001"
	OtherKey = "sk-user-0002"
)

// SampleAPIYAML is an operator document with one admin, two users and three
// providers covering both URL conventions plus an unsupported one.
const SampleAPIYAML = `providers:
  - provider: openai
    base_url: https://api.openai.com/v1/chat/completions
    api: sk-openai-upstream
    model:
      - gpt-4o
      - gpt-4o-mini: mini
  - provider: anthropic
    base_url: https://api.anthropic.com/v1/messages
    api:
      - sk-ant-1
      - sk-ant-2
    model:
      - claude-3-5-sonnet: sonnet
  - provider: gemini
    base_url: https://generativelanguage.googleapis.com/v1beta
    api: gm-key
    model:
      - gemini-1.5-pro

api_keys:
  - api: sk-admin-0001
    role: admin
    name: ops
  - api: sk-user-0001
    role: user
    name: alice
  - api: sk-user-0002
`

// WriteAPIConfig writes content to a temp api.yaml and returns its path.
func WriteAPIConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ReadFile returns the file content as a string.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
