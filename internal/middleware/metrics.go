package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/service"
)

const scrapePath = "/metrics"

// Metrics records every console request by route template. Prometheus scrapes
// are not counted.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == scrapePath {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
