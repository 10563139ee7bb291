// Package records keeps the admin views of applications and contact messages
// in sync with the backend.
package records

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

// ListError is the list-level failure shown with a retry affordance.
type ListError struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// MutationError reports a failed single-record mutation. The local state is
// left untouched when it is returned.
type MutationError struct {
	Op  string
	ID  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// collection is the fetch and detail-view state shared by the controllers.
type collection[T any] struct {
	store *Store[T]

	mu         sync.Mutex
	generation uint64
	loading    bool
	listErr    *ListError
	detailID   string
}

func newCollection[T any](key func(T) string) *collection[T] {
	return &collection[T]{store: NewStore(key)}
}

// fetch runs load and replaces the store unless a newer fetch started meanwhile.
func (c *collection[T]) fetch(ctx context.Context, load func(context.Context) ([]T, error)) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.loading = true
	c.mu.Unlock()

	items, err := load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return err
	}
	c.loading = false
	if err != nil {
		c.listErr = &ListError{
			Message:   appErrors.FromError(err).Message,
			Retryable: !errors.Is(err, appErrors.ErrAuthExpired) && !errors.Is(err, appErrors.ErrSessionRequired),
		}
		return err
	}
	c.listErr = nil
	c.store.Replace(items)
	return nil
}

func (c *collection[T]) status() (bool, *ListError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr == nil {
		return c.loading, nil
	}
	le := *c.listErr
	return c.loading, &le
}

func (c *collection[T]) open(id string) (T, error) {
	item, ok := c.store.Get(id)
	if !ok {
		var zero T
		return zero, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	c.mu.Lock()
	c.detailID = id
	c.mu.Unlock()
	return item, nil
}

func (c *collection[T]) close() {
	c.mu.Lock()
	c.detailID = ""
	c.mu.Unlock()
}

// detail returns the record shown in the detail view. The view reads through
// the store so confirmed mutations show up without extra bookkeeping.
func (c *collection[T]) detail() (T, bool) {
	c.mu.Lock()
	id := c.detailID
	c.mu.Unlock()
	if id == "" {
		var zero T
		return zero, false
	}
	return c.store.Get(id)
}
