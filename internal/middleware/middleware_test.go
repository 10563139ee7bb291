package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/nav"
	"github.com/westgate-schools/admin-console/internal/service"
	"github.com/westgate-schools/admin-console/internal/session"
)

type fixedSession struct {
	state session.State
}

func (f fixedSession) State() session.State { return f.state }

func guardedRouter(state session.State) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Navigation())
	admin := r.Group("/admin", RequireSession(fixedSession{state: state}, "/admin/login"))
	admin.GET("/messages", func(c *gin.Context) {
		a := AdminFromContext(c)
		c.JSON(http.StatusOK, gin.H{"admin": a.Username})
	})
	return r
}

func TestRequireSessionRedirectsAnonymous(t *testing.T) {
	r := guardedRouter(session.State{Status: session.StatusUnauthenticated})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/messages", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}

func TestRequireSessionLoadingAnswersUnavailable(t *testing.T) {
	r := guardedRouter(session.State{Status: session.StatusLoading})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/messages", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestRequireSessionAttachesAdmin(t *testing.T) {
	r := guardedRouter(session.State{
		Status: session.StatusAuthenticated,
		Admin:  &models.Admin{ID: "adm-1", Username: "registrar"},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/messages", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "registrar", body["admin"])
}

func TestNavigationTurnsPendingRedirectIntoSeeOther(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Navigation())
	r.POST("/admin/gallery/uploads/run", func(c *gin.Context) {
		assert.Equal(t, "/admin/gallery/uploads/run", nav.Location(c.Request.Context()))
		nav.Redirect(c.Request.Context(), "/admin/login")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/gallery/uploads/run", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}

func TestNavigationLeavesWrittenResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Navigation())
	r.GET("/admin/session", func(c *gin.Context) {
		nav.Redirect(c.Request.Context(), "/admin/login")
		c.JSON(http.StatusUnauthorized, gin.H{"status": "unauthenticated"})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/session", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsObservesMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/gallery", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gallery", nil))

	assert.Equal(t, uint64(1), metrics.Snapshot().RequestsTotal)
}
