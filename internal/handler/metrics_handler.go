package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/service"
	"github.com/westgate-schools/admin-console/internal/session"
)

type sessionReader interface {
	State() session.State
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	session sessionReader
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, s sessionReader) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, session: s}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness checks.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports 503 until the stored session has been verified at startup.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.session == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	state := h.session.State()
	if state.Status == session.StatusLoading {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting", "session": state.Status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "session": state.Status})
}
