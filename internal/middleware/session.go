package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/session"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/response"
)

// ContextAdminKey is the gin context key storing the signed-in admin.
const ContextAdminKey = "currentAdmin"

type sessionState interface {
	State() session.State
}

// RequireSession guards admin routes. While the session is still being
// verified the route answers 503; without a session the browser is sent to loginPath.
func RequireSession(s sessionState, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := s.State()
		switch state.Status {
		case session.StatusLoading:
			response.Error(c, appErrors.ErrSessionLoading)
			c.Abort()
			return
		case session.StatusUnauthenticated:
			response.Redirect(c, loginPath, appErrors.ErrSessionRequired)
			c.Abort()
			return
		}
		c.Set(ContextAdminKey, state.Admin)
		c.Next()
	}
}

// AdminFromContext returns the admin attached by RequireSession.
func AdminFromContext(c *gin.Context) *models.Admin {
	value, exists := c.Get(ContextAdminKey)
	if !exists {
		return nil
	}
	admin, _ := value.(*models.Admin)
	return admin
}
