package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONEqual compares two values as JSON, ignoring field order.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	require.NoError(t, err, "failed to marshal expected value")

	actualJSON, err := json.Marshal(actual)
	require.NoError(t, err, "failed to marshal actual value")

	assert.JSONEq(t, string(expectedJSON), string(actualJSON))
}

// DecodeJSON unmarshals the recorded response body into v.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "failed to unmarshal response body: %s", w.Body.String())
}

// AssertErrorResponse checks the status code and the {"error": ...} body.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	assert.Equal(t, status, w.Code, "unexpected HTTP status code")
	var body map[string]any
	DecodeJSON(t, w, &body)
	assert.Equal(t, message, body["error"])
}
