// Package nav carries the console location of the request being served and
// collects hard redirects requested while serving it.
package nav

import (
	"context"
	"strings"
	"sync"
)

type ctxKey struct{}

type frame struct {
	location string

	mu       sync.Mutex
	redirect string
}

// WithLocation marks ctx as serving the console path location.
func WithLocation(ctx context.Context, location string) context.Context {
	return context.WithValue(ctx, ctxKey{}, &frame{location: location})
}

// Location returns the current console path, or "" outside a console request.
func Location(ctx context.Context) string {
	if f := fromContext(ctx); f != nil {
		return f.location
	}
	return ""
}

// Within reports whether the current location lies under prefix.
func Within(ctx context.Context, prefix string) bool {
	return Under(Location(ctx), prefix)
}

// Under reports whether path equals prefix or is nested below it.
func Under(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" || path == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Redirect asks the console to send the browser to target once the current
// request completes. Returns false when ctx does not belong to a console request.
func Redirect(ctx context.Context, target string) bool {
	f := fromContext(ctx)
	if f == nil {
		return false
	}
	f.mu.Lock()
	f.redirect = target
	f.mu.Unlock()
	return true
}

// Redirected returns the pending redirect, if any.
func Redirected(ctx context.Context) (string, bool) {
	f := fromContext(ctx)
	if f == nil {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.redirect, f.redirect != ""
}

func fromContext(ctx context.Context) *frame {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(ctxKey{}).(*frame)
	return f
}
