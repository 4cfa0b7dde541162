package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteUnauthorized(w, "Authentication failed")

	assert.Equal(t, 401, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unauthorized", resp.Error)
	assert.Equal(t, "Authentication failed", resp.Message)
	assert.Zero(t, resp.RetryAfter)
}

func TestWriteRateLimited(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteRateLimited(w, "Too many login attempts. Please try again later.", 300)

	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "300", w.Header().Get("Retry-After"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
	assert.Equal(t, 300, resp.RetryAfter)
}
