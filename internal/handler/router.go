package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/middleware"
	"github.com/westgate-schools/admin-console/internal/service"
)

// Routes groups the handlers served by the console.
type Routes struct {
	Metrics      *MetricsHandler
	Auth         *AuthHandler
	Dashboard    *DashboardHandler
	Applications *ApplicationHandler
	Messages     *MessageHandler
	Gallery      *GalleryHandler
	Uploads      *UploadHandler
	Admissions   *AdmissionsHandler

	Session     sessionReader
	MetricsSvc  *service.MetricsService
	AdminPrefix string
	LoginPath   string
	AuditLogger *zap.Logger
}

// Register mounts every console route on router.
func (r Routes) Register(router *gin.Engine) {
	router.Use(middleware.Navigation(), middleware.Metrics(r.MetricsSvc))

	router.GET("/health", r.Metrics.Health)
	router.GET("/ready", r.Metrics.Ready)
	router.GET("/metrics", r.Metrics.Prometheus)

	router.POST("/contact", r.Messages.Contact)
	router.GET("/gallery", r.Gallery.Public)

	apply := router.Group("/apply")
	apply.POST("/wizards", r.Admissions.Create)
	apply.GET("/wizards/:id", r.Admissions.Get)
	apply.PUT("/wizards/:id/fields", r.Admissions.SetFields)
	apply.POST("/wizards/:id/next", r.Admissions.Next)
	apply.POST("/wizards/:id/back", r.Admissions.Back)
	apply.POST("/wizards/:id/keys", r.Admissions.Key)
	apply.POST("/wizards/:id/submit", r.Admissions.Submit)
	apply.GET("/slips/:token", r.Admissions.Slip)

	admin := router.Group(r.AdminPrefix)
	admin.GET(r.loginRoute(), r.Auth.LoginPage)
	admin.POST(r.loginRoute(), r.Auth.Login)

	guarded := admin.Group("", middleware.RequireSession(r.Session, r.LoginPath))
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(r.AuditLogger, action, resource)
	}

	guarded.POST("/logout", r.Auth.Logout)
	guarded.GET("/session", r.Auth.Session)
	guarded.GET("/dashboard", r.Dashboard.Summary)

	guarded.GET("/applications", r.Applications.List)
	guarded.GET("/applications/export", audit("EXPORT", "applications"), r.Applications.Export)
	guarded.GET("/applications/:id/view", r.Applications.Open)
	guarded.DELETE("/applications/:id/view", r.Applications.Close)
	guarded.PUT("/applications/:id/status", audit("UPDATE_STATUS", "applications"), r.Applications.UpdateStatus)

	guarded.GET("/messages", r.Messages.List)
	guarded.POST("/messages/:id/open", r.Messages.Open)
	guarded.DELETE("/messages/:id/view", r.Messages.Close)
	guarded.PUT("/messages/:id/status", audit("UPDATE_STATUS", "messages"), r.Messages.UpdateStatus)
	guarded.PUT("/messages/:id/respond", audit("RESPOND", "messages"), r.Messages.Respond)
	guarded.PUT("/messages/:id", audit("UPDATE", "messages"), r.Messages.Update)

	guarded.GET("/gallery", r.Gallery.List)
	guarded.PUT("/gallery/:id", audit("UPDATE", "gallery"), r.Gallery.Update)
	guarded.POST("/gallery/:id/featured", audit("TOGGLE_FEATURED", "gallery"), r.Gallery.ToggleFeatured)
	guarded.DELETE("/gallery/:id", audit("DELETE", "gallery"), r.Gallery.Delete)

	guarded.POST("/gallery/uploads", r.Uploads.Add)
	guarded.GET("/gallery/uploads", r.Uploads.List)
	guarded.POST("/gallery/uploads/run", audit("UPLOAD", "gallery"), r.Uploads.Run)
	guarded.PATCH("/gallery/uploads/:id", r.Uploads.Update)
	guarded.DELETE("/gallery/uploads/:id", r.Uploads.Remove)
	guarded.GET("/gallery/uploads/:id/preview", r.Uploads.Preview)
}

// loginRoute is the login path relative to the admin prefix.
func (r Routes) loginRoute() string {
	rel := r.LoginPath
	if len(rel) >= len(r.AdminPrefix) && rel[:len(r.AdminPrefix)] == r.AdminPrefix {
		rel = rel[len(r.AdminPrefix):]
	}
	if rel == "" {
		return "/"
	}
	return rel
}
