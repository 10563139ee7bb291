package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Badger persists the token on the machine running the console so an operator
// stays signed in across restarts.
type Badger struct {
	db  *badger.DB
	key []byte
}

// OpenBadger opens (or creates) the store directory.
func OpenBadger(path, key string, logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger.Sugar()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open token store %s: %w", path, err)
	}
	return NewBadger(db, key), nil
}

// NewBadger wraps an already opened database.
func NewBadger(db *badger.DB, key string) *Badger {
	return &Badger{db: db, key: []byte(key)}
}

func (b *Badger) Get(context.Context) (string, bool, error) {
	var token []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		token, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read token: %w", err)
	}
	return string(token), len(token) > 0, nil
}

func (b *Badger) Set(_ context.Context, token string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (b *Badger) Remove(context.Context) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.key)
	})
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
