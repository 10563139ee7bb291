package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/service"
	"github.com/westgate-schools/admin-console/pkg/response"
)

type applicationStatsSource interface {
	Stats(ctx context.Context) (*models.ApplicationOverview, error)
}

type messageStatsSource interface {
	Stats(ctx context.Context) (*models.MessageOverview, error)
}

type galleryStatsSource interface {
	Stats(ctx context.Context) (*models.GalleryStats, error)
}

// DashboardSummary aggregates the counters shown on the admin landing page.
type DashboardSummary struct {
	Applications *models.ApplicationOverview `json:"applications"`
	Messages     *models.MessageOverview     `json:"messages"`
	Gallery      *models.GalleryStats        `json:"gallery"`
	Console      service.MetricsSnapshot     `json:"console"`
}

// DashboardHandler wires the stats endpoints of the backend to the dashboard.
type DashboardHandler struct {
	applications applicationStatsSource
	messages     messageStatsSource
	gallery      galleryStatsSource
	metrics      *service.MetricsService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(applications applicationStatsSource, messages messageStatsSource, gallery galleryStatsSource, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{applications: applications, messages: messages, gallery: gallery, metrics: metrics}
}

// Summary godoc
// @Summary Admin dashboard summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Success 303 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	applications, err := h.applications.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	messages, err := h.messages.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	gallery, err := h.gallery.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := DashboardSummary{
		Applications: applications,
		Messages:     messages,
		Gallery:      gallery,
		Console:      h.metrics.Snapshot(),
	}
	meta := map[string]interface{}{"processing_time_ms": time.Since(start).Milliseconds()}
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
