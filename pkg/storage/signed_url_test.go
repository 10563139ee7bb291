package storage

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("slip-1", "2026/WGS20260001.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "slip-1", claims.ID)
	require.Equal(t, "2026/WGS20260001.pdf", claims.Path)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("slip-1", "a.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	claims, err := signer.Parse(token)
	require.True(t, errors.Is(err, ErrTokenExpired))
	assert.Equal(t, "a.pdf", claims.Path)
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("slip-1", "a.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
	_, err = signer.Parse("not.a.token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("2026/slip.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)

	f, info, err := store.Open(name)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
	assert.Equal(t, int64(8), info.Size())

	_, err = store.Save("../escape.pdf", []byte("x"))
	assert.Error(t, err)

	require.NoError(t, store.Delete(name))
	_, _, err = store.Open(name)
	assert.Error(t, err)
}
