package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/session"
	"github.com/westgate-schools/admin-console/pkg/response"
)

type authSession interface {
	State() session.State
	Login(ctx context.Context, username, password string) session.Result
	Logout(ctx context.Context)
}

// AuthHandler wires HTTP endpoints to the admin session.
type AuthHandler struct {
	session   authSession
	homePath  string
	loginPath string
}

// NewAuthHandler creates a new handler. homePath is where an already signed-in
// admin visiting the login location is sent.
func NewAuthHandler(s authSession, homePath, loginPath string) *AuthHandler {
	return &AuthHandler{session: s, homePath: homePath, loginPath: loginPath}
}

// LoginPage godoc
// @Summary Login location
// @Description Reports the session state. A signed-in admin is redirected to the dashboard; nothing happens while the session is loading.
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Success 303 {object} response.Envelope
// @Router /admin/login [get]
func (h *AuthHandler) LoginPage(c *gin.Context) {
	state := h.session.State()
	if state.Authenticated() {
		response.Redirect(c, h.homePath, nil)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Login godoc
// @Summary Authenticate admin
// @Description Signs the console in against the backend. Failures answer 200 with success=false and keep the operator on the login page.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}

	result := h.session.Login(c.Request.Context(), req.Username, req.Password)
	meta := map[string]interface{}{}
	if result.Success {
		meta["redirect"] = h.homePath
	}
	response.JSON(c, http.StatusOK, result, nil, meta)
}

// Logout godoc
// @Summary Sign out
// @Tags Authentication
// @Produce json
// @Success 303 {object} response.Envelope
// @Router /admin/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.session.Logout(c.Request.Context())
	response.Redirect(c, h.loginPath, nil)
}

// Session godoc
// @Summary Current session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.session.State(), nil)
}
