package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/admin-console/internal/backendtest"
	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

func TestLoginStoresToken(t *testing.T) {
	backend := backendtest.New(t)
	client, tokens := newClient(t, backend)

	data, err := client.Login(context.Background(), models.LoginRequest{Username: backendtest.Username, Password: backendtest.Password})
	require.NoError(t, err)
	assert.Equal(t, backendtest.Username, data.Admin.Username)

	token, ok, _ := tokens.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, data.Token, token)
}

func TestLoginWrongCredentialsStoresNothing(t *testing.T) {
	backend := backendtest.New(t)
	client, tokens := newClient(t, backend)

	_, err := client.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", appErrors.FromError(err).Message)
	assert.False(t, errors.Is(err, appErrors.ErrAuthExpired))

	_, ok, _ := tokens.Get(context.Background())
	assert.False(t, ok)
}

func TestLogoutRemovesTokenEvenOnFailure(t *testing.T) {
	backend := backendtest.New(t)
	client, tokens := newClient(t, backend)
	require.NoError(t, tokens.Set(context.Background(), backend.IssueToken()))
	backend.Fail(http.MethodPost, "/auth/logout", http.StatusInternalServerError, "down", 1)

	err := client.Logout(context.Background())
	require.Error(t, err)
	_, ok, _ := tokens.Get(context.Background())
	assert.False(t, ok)
}

func TestUploadGalleryImageSendsMultipart(t *testing.T) {
	backend := backendtest.New(t)
	client, tokens := newClient(t, backend)
	require.NoError(t, tokens.Set(context.Background(), backend.IssueToken()))

	tags, _ := json.Marshal(CleanTags([]string{" sports ", "", "day"}))
	img, err := client.UploadGalleryImage(context.Background(), Multipart{
		File: FilePart{Field: "image", Filename: "field.jpg", ContentType: "image/jpeg", Content: []byte("jpeg-bytes")},
		Fields: []Field{
			{Name: "title", Value: "Sports day"},
			{Name: "alt", Value: "Pupils racing"},
			{Name: "category", Value: "sports"},
			{Name: "tags", Value: string(tags)},
			{Name: "isFeatured", Value: "true"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sports day", img.Title)
	assert.Equal(t, []string{"sports", "day"}, img.Tags)
	assert.True(t, img.IsFeatured)
	assert.Equal(t, int64(len("jpeg-bytes")), img.Size)

	calls := backend.Calls(http.MethodPost, "/gallery")
	require.Len(t, calls, 1)
	assert.Equal(t, `["sports","day"]`, calls[0].Form["tags"])
}

func TestRespondToMessage(t *testing.T) {
	backend := backendtest.New(t)
	client, tokens := newClient(t, backend)
	require.NoError(t, tokens.Set(context.Background(), backend.IssueToken()))
	msg := backend.SeedMessage(models.Message{FirstName: "Amina", Subject: "Fees"})

	updated, err := client.RespondToMessage(context.Background(), msg.ID, "Fees are due in January.")
	require.NoError(t, err)
	assert.Equal(t, models.MessageReplied, updated.Status)
	assert.Equal(t, "Fees are due in January.", updated.Response)
}

func TestListQueryDropsEmptyAndAll(t *testing.T) {
	q := listQuery(2, 50, "status", "all", "program", "primary", "search", "  ")
	assert.Equal(t, "limit=50&page=2&program=primary", q.Encode())
}
