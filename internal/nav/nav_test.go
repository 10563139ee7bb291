package nav

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnder(t *testing.T) {
	assert.True(t, Under("/admin", "/admin"))
	assert.True(t, Under("/admin/messages", "/admin/"))
	assert.False(t, Under("/administrator", "/admin"))
	assert.False(t, Under("/apply", "/admin"))
	assert.False(t, Under("", "/admin"))
}

func TestRedirectRecordedOnFrame(t *testing.T) {
	ctx := WithLocation(context.Background(), "/admin/gallery")
	assert.True(t, Within(ctx, "/admin"))

	_, ok := Redirected(ctx)
	assert.False(t, ok)

	assert.True(t, Redirect(ctx, "/admin/login"))
	target, ok := Redirected(ctx)
	assert.True(t, ok)
	assert.Equal(t, "/admin/login", target)
}

func TestRedirectWithoutFrame(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", Location(ctx))
	assert.False(t, Redirect(ctx, "/admin/login"))
	_, ok := Redirected(ctx)
	assert.False(t, ok)
}
