// Package backendtest runs an in-process stand-in for the Westgate backend API.
// It implements the REST contract consumed by the console closely enough for
// controller and handler tests: bearer tokens are real HS256 JWTs, records are
// kept in memory, and failures can be injected per route.
package backendtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/westgate-schools/admin-console/internal/models"
)

// Default credentials accepted by the login endpoint.
const (
	Username = "admin"
	Password = "westgate-admin"
)

// Call is one request received by the server.
type Call struct {
	Method string
	Path   string
	Auth   string
	Body   string
	Form   map[string]string
}

type failure struct {
	status  int
	message string
	times   int
}

type claims struct {
	Username string `json:"username"`
	Epoch    int    `json:"epoch"`
	jwt.RegisteredClaims
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	// BeforeHandle runs before every route handler; tests use it to delay or
	// observe requests.
	BeforeHandle func(c *gin.Context)

	mu           sync.Mutex
	secret       []byte
	epoch        int
	revoked      map[string]bool
	admin        models.Admin
	applications []*models.Application
	messages     []*models.Message
	images       []*models.GalleryImage
	calls        []Call
	failures     map[string]*failure
	appSeq       int
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		secret:   []byte("backendtest-secret"),
		revoked:  map[string]bool{},
		failures: map[string]*failure{},
		admin: models.Admin{
			ID:       uuid.NewString(),
			Username: Username,
			Email:    "admin@westgate.ac.ke",
			Role:     "admin",
		},
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root, ending in /api.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// Admin returns the identity behind the default credentials.
func (s *Server) Admin() models.Admin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin
}

// IssueToken mints a valid token without going through login.
func (s *Server) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked()
}

// ExpireTokens invalidates every token issued so far.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
}

// Fail makes the next times requests to method+path answer status with message.
// path is relative to the API root, e.g. "/applications/abc/status".
func (s *Server) Fail(method, path string, status int, message string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" /api"+path] = &failure{status: status, message: message, times: times}
}

// Calls returns the requests received for method and API path ("" matches all).
func (s *Server) Calls(method, path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range s.calls {
		if (method == "" || c.Method == method) && (path == "" || c.Path == "/api"+path) {
			out = append(out, c)
		}
	}
	return out
}

// SeedApplication stores a copy of a and returns it with ids filled in.
func (s *Server) SeedApplication(a models.Application) models.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.ApplicationNumber == "" {
		a.ApplicationNumber = s.nextApplicationNumberLocked()
	}
	if a.Status == "" {
		a.Status = models.ApplicationPending
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now().UTC()
	}
	stored := a
	s.applications = append(s.applications, &stored)
	return stored
}

// SeedMessage stores a copy of m and returns it with ids filled in.
func (s *Server) SeedMessage(m models.Message) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = models.MessageUnread
	}
	if m.Priority == "" {
		m.Priority = models.PriorityNormal
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	stored := m
	s.messages = append(s.messages, &stored)
	return stored
}

// SeedImage stores a copy of img and returns it with ids filled in.
func (s *Server) SeedImage(img models.GalleryImage) models.GalleryImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	img.IsActive = true
	stored := img
	s.images = append(s.images, &stored)
	return stored
}

// Images returns a snapshot of stored gallery images.
func (s *Server) Images() []models.GalleryImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.GalleryImage, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, *img)
	}
	return out
}

// Application returns the stored application with id.
func (s *Server) Application(id string) (models.Application, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applications {
		if a.ID == id {
			return *a, true
		}
	}
	return models.Application{}, false
}

// Message returns the stored message with id.
func (s *Server) Message(id string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return *m, true
		}
	}
	return models.Message{}, false
}

func (s *Server) router() http.Handler {
	r := gin.New()
	r.Use(s.record, s.inject, s.hook)

	api := r.Group("/api")
	api.POST("/auth/login", s.login)
	api.POST("/applications", s.createApplication)
	api.POST("/messages", s.createMessage)
	api.GET("/gallery", s.listGallery)

	authed := api.Group("", s.requireToken)
	authed.POST("/auth/logout", s.logout)
	authed.POST("/auth/verify-token", s.verify)
	authed.GET("/applications", s.listApplications)
	authed.GET("/applications/stats", s.applicationStats)
	authed.PUT("/applications/:id/status", s.updateApplicationStatus)
	authed.GET("/messages", s.listMessages)
	authed.GET("/messages/stats", s.messageStats)
	authed.PUT("/messages/:id/status", s.updateMessageStatus)
	authed.PUT("/messages/:id/respond", s.respondMessage)
	authed.PUT("/messages/:id", s.updateMessage)
	authed.POST("/gallery", s.uploadImage)
	authed.GET("/gallery/stats", s.galleryStats)
	authed.PUT("/gallery/:id", s.updateImage)
	authed.DELETE("/gallery/:id", s.deleteImage)
	return r
}

func (s *Server) record(c *gin.Context) {
	call := Call{Method: c.Request.Method, Path: c.Request.URL.Path, Auth: c.GetHeader("Authorization")}
	if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
		if err := c.Request.ParseMultipartForm(32 << 20); err == nil {
			call.Form = map[string]string{}
			for k, v := range c.Request.MultipartForm.Value {
				if len(v) > 0 {
					call.Form[k] = v[0]
				}
			}
		}
	} else if c.Request.Body != nil {
		raw, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		call.Body = string(raw)
	}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path
	s.mu.Lock()
	f, ok := s.failures[key]
	if ok {
		f.times--
		if f.times <= 0 {
			delete(s.failures, key)
		}
	}
	s.mu.Unlock()
	if ok {
		if f.message == "" {
			c.AbortWithStatus(f.status)
			return
		}
		c.AbortWithStatusJSON(f.status, gin.H{"success": false, "message": f.message})
		return
	}
	c.Next()
}

func (s *Server) hook(c *gin.Context) {
	if s.BeforeHandle != nil {
		s.BeforeHandle(c)
	}
	c.Next()
}

func (s *Server) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Access denied. No token provided."})
		return
	}
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(raw, parsed, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	s.mu.Lock()
	stale := err != nil || parsed.Epoch != s.epoch || s.revoked[parsed.ID]
	s.mu.Unlock()
	if stale {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token."})
		return
	}
	c.Set("jti", parsed.ID)
	c.Next()
}

func (s *Server) issueLocked() string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Username: s.admin.Username,
		Epoch:    s.epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) nextApplicationNumberLocked() string {
	s.appSeq++
	return fmt.Sprintf("WGS%d%04d", time.Now().Year(), s.appSeq)
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func decode(c *gin.Context, dest interface{}) bool {
	if err := json.NewDecoder(c.Request.Body).Decode(dest); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
