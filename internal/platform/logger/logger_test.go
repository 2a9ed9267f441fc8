package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	h := middleware.RequestID(Middleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/health/notifications/x", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var evt map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &evt))
	assert.Equal(t, "request", evt["message"])
	assert.Equal(t, "GET", evt["method"])
	assert.Equal(t, "/api/health/notifications/x", evt["path"])
	assert.Equal(t, float64(http.StatusTeapot), evt["status"])
	assert.NotEmpty(t, evt["request_id"])
}

func TestNewLevels(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("development").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("production").GetLevel())
}
