package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/westgate-schools/admin-console/pkg/middleware/requestid"
)

// InitSentry configures error reporting. An empty DSN disables it and returns
// a no-op flush.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports err tagged with the console request id found on ctx.
func CaptureErr(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	if id := requestid.FromContext(ctx); id != "" {
		hub.Scope().SetTag("request_id", id)
	}
	hub.CaptureException(err)
}
