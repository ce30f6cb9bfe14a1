package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		dir        string
		wantCode   int
		wantStatus string
		wantIndex  string
	}{
		{"readable index", t.TempDir(), http.StatusOK, "healthy", "readable"},
		{"missing index", filepath.Join(t.TempDir(), "missing"), http.StatusServiceUnavailable, "unhealthy", "unreadable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(&Index{Dir: tt.dir})
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantIndex, resp.Index)
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

func TestLandingHandler(t *testing.T) {
	handler := NewLandingHandler()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Notebook Host")

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServerAndHTTPHandler(t *testing.T) {
	server := NewServer(&Config{Index: &Index{Dir: t.TempDir()}})
	require.NotNil(t, server.MCPServer())

	handler := NewHTTPHandler(server, &HTTPHandlerOptions{Stateless: true})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	// A bare GET without an MCP session or Accept header is rejected, not served.
	assert.GreaterOrEqual(t, rec.Code, 400)
}
