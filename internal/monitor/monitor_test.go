package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/khakasnews/internal/logger"
	"github.com/deusflow/khakasnews/internal/metrics"
)

func get(t *testing.T, m *metrics.Metrics, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	NewRouter(m).ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealth(t *testing.T) {
	m := metrics.New()

	w, body := get(t, m, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	m.SetError("getUpdates: connection reset", true)
	w, body = get(t, m, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "getUpdates: connection reset", body["last_error"])
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.IncrementRunsStarted()
	m.IncrementRunsDelivered()

	w, body := get(t, m, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["runs_started"])
	assert.Equal(t, float64(1), body["runs_delivered"])
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, "127.0.0.1:0", metrics.New(), logger.Discard()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
