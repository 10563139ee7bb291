package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/session"
)

type fakeAuthSession struct {
	state       session.State
	result      session.Result
	loginCalls  int
	logoutCalls int
}

func (f *fakeAuthSession) State() session.State { return f.state }

func (f *fakeAuthSession) Login(context.Context, string, string) session.Result {
	f.loginCalls++
	return f.result
}

func (f *fakeAuthSession) Logout(context.Context) {
	f.logoutCalls++
	f.state = session.State{Status: session.StatusUnauthenticated}
}

func TestAuthHandlerLoginFailureStaysOnLoginPage(t *testing.T) {
	fake := &fakeAuthSession{
		state:  session.State{Status: session.StatusUnauthenticated},
		result: session.Result{Success: false, Message: "Invalid credentials"},
	}
	handler := NewAuthHandler(fake, "/admin/dashboard", "/admin/login")

	c, rec := testContext(http.MethodPost, "/admin/login", jsonBody(t, models.LoginRequest{Username: "admin", Password: "nope"}))
	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	var result session.Result
	envelope := decodeEnvelope(t, rec, &result)
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid credentials", result.Message)
	assert.Nil(t, envelope.Meta)
	assert.Equal(t, 1, fake.loginCalls)
}

func TestAuthHandlerLoginSuccessPointsToDashboard(t *testing.T) {
	fake := &fakeAuthSession{result: session.Result{Success: true, Message: "Login successful"}}
	handler := NewAuthHandler(fake, "/admin/dashboard", "/admin/login")

	c, rec := testContext(http.MethodPost, "/admin/login", jsonBody(t, models.LoginRequest{Username: "admin", Password: "secret"}))
	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	assert.Equal(t, "/admin/dashboard", envelope.Meta["redirect"])
}

func TestAuthHandlerLoginRejectsMalformedBody(t *testing.T) {
	fake := &fakeAuthSession{}
	handler := NewAuthHandler(fake, "/admin/dashboard", "/admin/login")

	c, rec := testContext(http.MethodPost, "/admin/login", jsonBody(t, "not an object"))
	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fake.loginCalls)
}

func TestAuthHandlerLoginPage(t *testing.T) {
	cases := []struct {
		name     string
		state    session.State
		status   int
		location string
	}{
		{"loading does not redirect", session.State{Status: session.StatusLoading}, http.StatusOK, ""},
		{"anonymous stays", session.State{Status: session.StatusUnauthenticated}, http.StatusOK, ""},
		{"signed in goes home", session.State{Status: session.StatusAuthenticated, Admin: &models.Admin{ID: "adm-1"}}, http.StatusSeeOther, "/admin/dashboard"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAuthHandler(&fakeAuthSession{state: tc.state}, "/admin/dashboard", "/admin/login")
			c, rec := testContext(http.MethodGet, "/admin/login", nil)

			handler.LoginPage(c)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
		})
	}
}

func TestAuthHandlerLogoutRedirectsToLogin(t *testing.T) {
	fake := &fakeAuthSession{state: session.State{Status: session.StatusAuthenticated, Admin: &models.Admin{ID: "adm-1"}}}
	handler := NewAuthHandler(fake, "/admin/dashboard", "/admin/login")

	c, rec := testContext(http.MethodPost, "/admin/logout", nil)
	handler.Logout(c)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	assert.Equal(t, 1, fake.logoutCalls)
}
