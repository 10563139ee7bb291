package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload outcomes recorded by ObserveUpload.
const (
	UploadSucceeded = "uploaded"
	UploadInvalid   = "invalid"
	UploadFailed    = "failed"
	UploadAborted   = "aborted"
)

// MetricsService encapsulates Prometheus instrumentation for the console and
// its calls to the backend.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	sessionExpired  prometheus.Counter
	uploads         *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	backendCount         uint64
	backendFailures      uint64
	expiredCount         uint64
}

// MetricsSnapshot is a lightweight summary for the dashboard.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	BackendCalls             uint64    `json:"backendCalls"`
	BackendFailures          uint64    `json:"backendFailures"`
	SessionsExpired          uint64    `json:"sessionsExpired"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of console HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of console HTTP requests",
	}, []string{"method", "path", "status"})

	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of calls to the backend API",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status"})

	sessionExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_expired_total",
		Help: "Authenticated calls rejected with 401",
	})

	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_uploads_total",
		Help: "Gallery upload batch items by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, backendDuration, sessionExpired, uploads, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		backendDuration: backendDuration,
		sessionExpired:  sessionExpired,
		uploads:         uploads,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records console request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveBackendCall records one backend round trip. status is 0 when the
// request never produced a response.
func (m *MetricsService) ObserveBackendCall(endpoint, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(endpoint, method, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
	atomic.AddUint64(&m.backendCount, 1)
	if status == 0 || status >= 400 {
		atomic.AddUint64(&m.backendFailures, 1)
	}
}

// ObserveSessionExpired counts 401 answers to authenticated calls.
func (m *MetricsService) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.sessionExpired.Inc()
	atomic.AddUint64(&m.expiredCount, 1)
}

// ObserveUpload counts one upload batch item outcome.
func (m *MetricsService) ObserveUpload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// Snapshot returns aggregated metrics suitable for the dashboard.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		BackendCalls:             atomic.LoadUint64(&m.backendCount),
		BackendFailures:          atomic.LoadUint64(&m.backendFailures),
		SessionsExpired:          atomic.LoadUint64(&m.expiredCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
