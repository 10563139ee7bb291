package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/admin-console/internal/admissions"
	"github.com/westgate-schools/admin-console/internal/apiclient"
	"github.com/westgate-schools/admin-console/internal/backendtest"
	"github.com/westgate-schools/admin-console/internal/gallery"
	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/records"
	"github.com/westgate-schools/admin-console/internal/service"
	"github.com/westgate-schools/admin-console/internal/session"
	"github.com/westgate-schools/admin-console/internal/tokenstore"
)

type console struct {
	backend *backendtest.Server
	tokens  *tokenstore.Memory
	session *session.Session
	router  *gin.Engine
}

func newConsole(t *testing.T) *console {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := backendtest.New(t)
	tokens := tokenstore.NewMemory()
	metrics := service.NewMetricsService()
	client := apiclient.New(apiclient.Config{BaseURL: backend.BaseURL(), AdminPrefix: "/admin", LoginPath: "/admin/login"}, tokens, apiclient.WithMetrics(metrics))
	validate := validator.New()

	sess := session.New(client, tokens, validate, nil)
	client.OnSessionExpired(sess.Expire)
	sess.Init(context.Background())

	applications := records.NewApplications(client, nil)
	messages := records.NewMessages(client, nil)
	galleryCtrl := gallery.NewController(client, nil)
	previews := gallery.NewPreviewRegistry("/admin/gallery/uploads")
	batch, err := gallery.NewUploadBatch(client, tokens, galleryCtrl, previews, validate, nil, gallery.BatchConfig{
		PruneDelay:  time.Hour,
		MaxFileSize: 1 << 20,
		LoginPath:   "/admin/login",
	})
	require.NoError(t, err)
	registry, err := admissions.NewRegistry(client, nil, validate, admissions.Defaults{Nationality: "Kenya"}, nil, nil)
	require.NoError(t, err)

	router := gin.New()
	Routes{
		Metrics:      NewMetricsHandler(metrics, sess),
		Auth:         NewAuthHandler(sess, "/admin/dashboard", "/admin/login"),
		Dashboard:    NewDashboardHandler(applications, messages, galleryCtrl, metrics),
		Applications: NewApplicationHandler(applications),
		Messages:     NewMessageHandler(messages, client, validate, nil),
		Gallery:      NewGalleryHandler(galleryCtrl, client),
		Uploads:      NewUploadHandler(batch, previews, 0, nil),
		Admissions:   NewAdmissionsHandler(registry, nil),
		Session:      sess,
		MetricsSvc:   metrics,
		AdminPrefix:  "/admin",
		LoginPath:    "/admin/login",
	}.Register(router)

	return &console{backend: backend, tokens: tokens, session: sess, router: router}
}

func (c *console) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return performRequest(c.router, req)
}

func (c *console) login(t *testing.T) {
	t.Helper()
	rec := c.do(t, http.MethodPost, "/admin/login", models.LoginRequest{Username: backendtest.Username, Password: backendtest.Password})
	require.Equal(t, http.StatusOK, rec.Code)
	var result session.Result
	decodeEnvelope(t, rec, &result)
	require.True(t, result.Success, result.Message)
}

func TestConsoleAdminAreaRequiresSession(t *testing.T) {
	app := newConsole(t)

	rec := app.do(t, http.MethodGet, "/admin/applications", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	assert.Empty(t, app.backend.Calls("", "/applications"))
}

func TestConsoleWrongCredentialsStayOnLogin(t *testing.T) {
	app := newConsole(t)

	rec := app.do(t, http.MethodPost, "/admin/login", models.LoginRequest{Username: backendtest.Username, Password: "wrong"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	var result session.Result
	envelope := decodeEnvelope(t, rec, &result)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)
	assert.Nil(t, envelope.Meta)

	_, stored, err := app.tokens.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, session.StatusUnauthenticated, app.session.State().Status)
}

func TestConsoleRejectPendingApplication(t *testing.T) {
	app := newConsole(t)
	seeded := app.backend.SeedApplication(models.Application{
		Program: "primary",
		Grade:   "grade-1",
		Student: models.StudentInfo{FirstName: "Amina", LastName: "Otieno"},
		Parent:  models.ParentInfo{Email: "grace@mail.test"},
	})
	app.login(t)

	rec := app.do(t, http.MethodGet, "/admin/applications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view ApplicationListView
	decodeEnvelope(t, rec, &view)
	require.Len(t, view.Applications, 1)
	assert.Len(t, view.Applications[0].Actions, 3)

	rec = app.do(t, http.MethodPut, "/admin/applications/"+seeded.ID+"/status", map[string]string{"status": "rejected"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var row ApplicationRow
	decodeEnvelope(t, rec, &row)
	assert.Equal(t, "Rejected", row.StatusLabel)
	assert.Empty(t, row.Actions)

	calls := app.backend.Calls(http.MethodPut, "/applications/"+seeded.ID+"/status")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"status":"rejected"}`, calls[0].Body)

	rec = app.do(t, http.MethodPut, "/admin/applications/"+seeded.ID+"/status", map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, app.backend.Calls(http.MethodPut, "/applications/"+seeded.ID+"/status"), 1)
}

func TestConsoleExpiredTokenRedirectsToLogin(t *testing.T) {
	app := newConsole(t)
	app.backend.SeedMessage(models.Message{FirstName: "Mercy", Subject: "Fees"})
	app.login(t)
	app.backend.ExpireTokens()

	rec := app.do(t, http.MethodGet, "/admin/messages?refresh=true", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	_, stored, err := app.tokens.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, session.StatusUnauthenticated, app.session.State().Status)

	rec = app.do(t, http.MethodGet, "/admin/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestConsoleReadiness(t *testing.T) {
	app := newConsole(t)

	rec := app.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
