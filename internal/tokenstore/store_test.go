package tokenstore

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "token-1"))
	token, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-1", token)

	require.NoError(t, store.Set(ctx, "token-2"))
	token, _, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)

	require.NoError(t, store.Remove(ctx))
	_, ok, err = store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Remove(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestBadgerStore(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	store := NewBadger(db, "adminToken")
	defer store.Close() //nolint:errcheck

	exerciseStore(t, store)
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	store := NewBadger(db, "adminToken")
	require.NoError(t, store.Set(ctx, "persisted"))
	require.NoError(t, store.Close())

	db, err = badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	reopened := NewBadger(db, "adminToken")
	defer reopened.Close() //nolint:errcheck

	token, ok, err := reopened.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", token)
}
