package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/admin-console/internal/backendtest"
	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/nav"
	"github.com/westgate-schools/admin-console/internal/service"
	"github.com/westgate-schools/admin-console/internal/tokenstore"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/middleware/requestid"
)

func newClient(t *testing.T, backend *backendtest.Server) (*Client, *tokenstore.Memory) {
	t.Helper()
	tokens := tokenstore.NewMemory()
	return New(Config{BaseURL: backend.BaseURL()}, tokens, WithMetrics(service.NewMetricsService())), tokens
}

func TestURLNormalisesAPIPrefix(t *testing.T) {
	cases := []struct {
		base     string
		endpoint string
		want     string
	}{
		{"https://api.westgate.ac.ke/api", "/applications", "https://api.westgate.ac.ke/api/applications"},
		{"https://api.westgate.ac.ke/api/", "/api/applications", "https://api.westgate.ac.ke/api/applications"},
		{"https://api.westgate.ac.ke", "/applications", "https://api.westgate.ac.ke/api/applications"},
		{"https://api.westgate.ac.ke/", "/api/gallery", "https://api.westgate.ac.ke/api/gallery"},
		{"http://localhost:5000/api", "auth/login", "http://localhost:5000/api/auth/login"},
	}
	for _, tc := range cases {
		c := New(Config{BaseURL: tc.base}, tokenstore.NewMemory())
		assert.Equal(t, tc.want, c.URL(tc.endpoint, nil), "base=%s endpoint=%s", tc.base, tc.endpoint)
	}

	c := New(Config{BaseURL: "http://localhost:5000/api"}, tokenstore.NewMemory())
	q := url.Values{"status": []string{"pending"}}
	assert.Equal(t, "http://localhost:5000/api/applications?status=pending", c.URL("/applications", q))
}

func TestAuthenticatedCallWithoutTokenNeverReachesNetwork(t *testing.T) {
	backend := backendtest.New(t)
	client, _ := newClient(t, backend)

	_, err := client.ListApplications(context.Background(), models.ListQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSessionRequired))

	_, err = client.UpdateApplicationStatus(context.Background(), "abc", models.UpdateStatusRequest{Status: "approved"})
	assert.True(t, errors.Is(err, appErrors.ErrSessionRequired))
	assert.Empty(t, backend.Calls("", ""))
}

func TestBearerTokenAttached(t *testing.T) {
	backend := backendtest.New(t)
	client, tokens := newClient(t, backend)
	token := backend.IssueToken()
	require.NoError(t, tokens.Set(context.Background(), token))

	_, err := client.ApplicationStats(context.Background())
	require.NoError(t, err)

	calls := backend.Calls(http.MethodGet, "/applications/stats")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer "+token, calls[0].Auth)
}

func TestUnauthorizedClearsTokenAndRedirectsInsideAdmin(t *testing.T) {
	endpoints := map[string]func(context.Context, *Client) error{
		"applications": func(ctx context.Context, c *Client) error {
			_, err := c.ListApplications(ctx, models.ListQuery{})
			return err
		},
		"messages status": func(ctx context.Context, c *Client) error {
			_, err := c.UpdateMessageStatus(ctx, "m1", models.MessageRead)
			return err
		},
		"gallery delete": func(ctx context.Context, c *Client) error {
			return c.DeleteGalleryImage(ctx, "g1")
		},
		"verify": func(ctx context.Context, c *Client) error {
			_, err := c.VerifyToken(ctx)
			return err
		},
	}

	for name, call := range endpoints {
		t.Run(name, func(t *testing.T) {
			backend := backendtest.New(t)
			client, tokens := newClient(t, backend)
			require.NoError(t, tokens.Set(context.Background(), backend.IssueToken()))
			backend.ExpireTokens()

			expired := 0
			client.OnSessionExpired(func() { expired++ })

			ctx := nav.WithLocation(context.Background(), "/admin/applications")
			err := call(ctx, client)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrAuthExpired))
			assert.Equal(t, appErrors.ErrAuthExpired.Message, appErrors.FromError(err).Message)

			_, ok, _ := tokens.Get(context.Background())
			assert.False(t, ok)
			target, redirected := nav.Redirected(ctx)
			assert.True(t, redirected)
			assert.Equal(t, "/admin/login", target)
			assert.Equal(t, 1, expired)
		})
	}
}

func TestUnauthorizedOutsideAdminDoesNotRedirect(t *testing.T) {
	backend := backendtest.New(t)
	client, tokens := newClient(t, backend)
	require.NoError(t, tokens.Set(context.Background(), "not-a-valid-token"))

	ctx := nav.WithLocation(context.Background(), "/gallery")
	_, err := client.GalleryStats(ctx)
	assert.True(t, errors.Is(err, appErrors.ErrAuthExpired))

	_, ok, _ := tokens.Get(context.Background())
	assert.False(t, ok)
	_, redirected := nav.Redirected(ctx)
	assert.False(t, redirected)
}

func TestServerMessageSurfaced(t *testing.T) {
	backend := backendtest.New(t)
	client, tokens := newClient(t, backend)
	require.NoError(t, tokens.Set(context.Background(), backend.IssueToken()))
	backend.Fail(http.MethodPut, "/applications/a1/status", http.StatusConflict, "Application already finalised", 1)

	_, err := client.UpdateApplicationStatus(context.Background(), "a1", models.UpdateStatusRequest{Status: "approved"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Application already finalised", appErr.Message)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestGenericStatusFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, tokenstore.NewMemory())
	_, err := client.ListGallery(context.Background(), models.GalleryQuery{})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
	assert.Equal(t, "HTTP 503: Service Unavailable", appErr.Message)
}

func TestMalformedJSONIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": tru`))
	}))
	defer srv.Close()

	reported := 0
	client := New(Config{BaseURL: srv.URL}, tokenstore.NewMemory(), WithErrorReporter(func(context.Context, error) { reported++ }))
	_, err := client.ListGallery(context.Background(), models.GalleryQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrTransport))
	assert.Equal(t, 1, reported)
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := New(Config{BaseURL: base}, tokenstore.NewMemory())
	_, err := client.ListGallery(context.Background(), models.GalleryQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrTransport))
}

func TestRequestIDForwarded(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(requestid.Header)
		_, _ = w.Write([]byte(`{"success":true,"data":{"images":[]}}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, tokenstore.NewMemory())
	_, err := client.ListGallery(requestid.WithValue(context.Background(), "req-42"), models.GalleryQuery{})
	require.NoError(t, err)
	assert.Equal(t, "req-42", got)
}
