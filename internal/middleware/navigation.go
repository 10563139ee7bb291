package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/nav"
	"github.com/westgate-schools/admin-console/pkg/response"
)

// Navigation records the console location of the request on its context and
// turns a redirect requested while serving it into a 303 response.
func Navigation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := nav.WithLocation(c.Request.Context(), c.Request.URL.Path)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		target, ok := nav.Redirected(ctx)
		if !ok || c.Writer.Written() {
			return
		}
		response.Redirect(c, target, nil)
	}
}
