package dsquery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonbodner/dsquery/logger"
)

// Cached keeps the result of a query, mapped through a transform, and refreshes it once it is
// older than its time to live. It balances not querying on every read with picking up
// changes without a restart.
type Cached[T any] struct {
	q         *Query
	args      Args
	ttl       time.Duration
	transform func(Row) (T, error)
	now       func() time.Time

	mu      sync.RWMutex
	items   []T
	fetched time.Time
}

// NewCached creates a cache over q invoked with args. Nothing is fetched until the first Get.
func NewCached[T any](q *Query, ttl time.Duration, transform func(Row) (T, error), args Args) *Cached[T] {
	return &Cached[T]{
		q:         q,
		args:      args,
		ttl:       ttl,
		transform: transform,
		now:       time.Now,
	}
}

// Get returns a copy of the cached items, refreshing them first if they are stale. If the
// refresh fails the previous items are returned along with the error.
func (c *Cached[T]) Get(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	fresh := !c.fetched.IsZero() && c.now().Sub(c.fetched) < c.ttl
	items := c.items
	c.mu.RUnlock()
	if fresh {
		return copyItems(items), nil
	}
	return c.Refresh(ctx)
}

// Refresh runs the query now. On failure the cached items are kept.
func (c *Cached[T]) Refresh(ctx context.Context) ([]T, error) {
	ctx = logContext(ctx)
	logger.Log(ctx, logger.DEBUG, fmt.Sprint("refreshing ", c.q))
	rows, err := c.q.Invoke(ctx, c.args)
	var items []T
	if err == nil {
		items = make([]T, 0, len(rows))
		for _, r := range rows {
			var item T
			item, err = c.transform(r)
			if err != nil {
				break
			}
			items = append(items, item)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		logger.Log(ctx, logger.WARN, "refresh failed, keeping cached items",
			logger.Pair{Key: "error", Value: err.Error()},
			logger.Pair{Key: "cached", Value: len(c.items)})
		return copyItems(c.items), err
	}
	c.items = items
	c.fetched = c.now()
	logger.Log(ctx, logger.DEBUG, "refreshed", logger.Pair{Key: "len", Value: len(items)})
	return copyItems(items), nil
}

// copyItems keeps callers from modifying the cached slice.
func copyItems[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
