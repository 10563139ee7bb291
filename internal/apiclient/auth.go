package apiclient

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

// Login exchanges credentials for a token and stores it.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginData, error) {
	var env models.Envelope[models.LoginData]
	if err := c.Do(ctx, Request{Endpoint: "/auth/login", Method: http.MethodPost, Body: req}, &env); err != nil {
		return nil, err
	}
	if !env.Success || env.Data.Token == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, firstNonEmpty(env.Message, "Login failed"))
	}
	if err := c.tokens.Set(ctx, env.Data.Token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store session token")
	}
	return &env.Data, nil
}

// Logout ends the session on the backend. The local token is removed whatever
// the outcome.
func (c *Client) Logout(ctx context.Context) error {
	defer func() {
		if err := c.tokens.Remove(ctx); err != nil {
			c.logger.Error("failed to remove token on logout", zap.Error(err))
		}
	}()
	return c.Do(ctx, Request{Endpoint: "/auth/logout", Method: http.MethodPost, RequireAuth: true}, nil)
}

// VerifyToken asks the backend who the stored token belongs to.
func (c *Client) VerifyToken(ctx context.Context) (*models.Admin, error) {
	var env models.Envelope[models.VerifyData]
	if err := c.Do(ctx, Request{Endpoint: "/auth/verify-token", Method: http.MethodPost, RequireAuth: true}, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, firstNonEmpty(env.Message, "token verification failed"))
	}
	return &env.Data.Admin, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
