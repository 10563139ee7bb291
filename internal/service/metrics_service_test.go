package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/admin/messages", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/admin/messages", http.StatusOK, 40*time.Millisecond)
	m.ObserveBackendCall("/messages", http.MethodGet, http.StatusOK, time.Millisecond)
	m.ObserveBackendCall("/messages", http.MethodGet, http.StatusUnauthorized, time.Millisecond)
	m.ObserveBackendCall("/gallery", http.MethodPost, 0, time.Millisecond)
	m.ObserveSessionExpired()
	m.ObserveUpload(UploadSucceeded)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(3), snap.BackendCalls)
	assert.Equal(t, uint64(2), snap.BackendFailures)
	assert.Equal(t, uint64(1), snap.SessionsExpired)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveUpload(UploadInvalid)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `gallery_uploads_total{outcome="invalid"} 1`))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveBackendCall("/x", http.MethodGet, 200, time.Millisecond)
	m.ObserveSessionExpired()
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
