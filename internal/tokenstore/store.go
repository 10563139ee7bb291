// Package tokenstore persists the single bearer token of the admin session.
//
// The token is opaque to the console: nothing here tracks expiry, which is only
// discovered when the backend answers 401.
package tokenstore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/pkg/cache"
	"github.com/westgate-schools/admin-console/pkg/config"
)

// Store holds at most one token under a fixed key.
type Store interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, token string) error
	Remove(ctx context.Context) error
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close() error
}

// Open builds the store selected by configuration.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := cfg.TokenStore.StorageKey
	switch cfg.TokenStore.Backend {
	case config.TokenStoreMemory:
		return NewMemory(), nil
	case config.TokenStoreBadger, "":
		return OpenBadger(cfg.TokenStore.Path, key, logger)
	case config.TokenStoreRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, key), nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.TokenStore.Backend)
	}
}

// Memory keeps the token for the lifetime of the process.
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != "", nil
}

func (m *Memory) Set(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
