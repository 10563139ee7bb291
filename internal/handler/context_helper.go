package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/admin-console/internal/nav"
	"github.com/westgate-schools/admin-console/internal/records"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/response"
)

// respondError writes err, or a 303 when serving the request triggered a
// forced navigation (an expired session, typically).
func respondError(c *gin.Context, err error) {
	if target, ok := nav.Redirected(c.Request.Context()); ok {
		response.Redirect(c, target, err)
		return
	}
	response.Error(c, err)
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

type fetcher interface {
	FetchAll(ctx context.Context) error
	Status() (bool, *records.ListError)
}

// ensureFetched loads a list on first use or when ?refresh is set. A list
// failure is reported in the view; only a forced navigation ends the request.
func ensureFetched(c *gin.Context, f fetcher, populated bool) bool {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	_, listErr := f.Status()
	if !refresh && (populated || listErr != nil) {
		return true
	}
	err := f.FetchAll(c.Request.Context())
	if _, redirected := nav.Redirected(c.Request.Context()); redirected {
		respondError(c, err)
		return false
	}
	return true
}
