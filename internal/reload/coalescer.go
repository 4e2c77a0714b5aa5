package reload

import (
	"context"
	"sync"

	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Fetch loads the current value of a resource.
type Fetch[T any] func(ctx context.Context) (T, error)

// Apply receives a fetch outcome. It is only invoked for outcomes newer than
// the last one applied for the same key, and never concurrently for one key.
type Apply[T any] func(value T, err error)

// Coalescer collapses concurrent reloads of the same key into one in-flight
// fetch. A request issued after the in-flight fetch started waits for a fresh
// fetch instead of reusing the older result.
type Coalescer[T any] struct {
	resource string
	metrics  *metrics.ReloadMetrics
	group    singleflight.Group

	mu      sync.Mutex
	issued  map[string]uint64
	applied map[string]uint64
	applyMu sync.Mutex
}

type outcome[T any] struct {
	value T
	err   error
	gen   uint64
}

// New builds a coalescer; resource labels the reload metrics.
func New[T any](resource string, m *metrics.ReloadMetrics) *Coalescer[T] {
	return &Coalescer[T]{
		resource: resource,
		metrics:  m,
		issued:   make(map[string]uint64),
		applied:  make(map[string]uint64),
	}
}

// Do requests a reload of key. The returned error is the outcome of the fetch
// that served this request; apply sees it only when that outcome is the newest.
func (c *Coalescer[T]) Do(ctx context.Context, key string, fetch Fetch[T], apply Apply[T]) error {
	requested := c.issue(key)
	fetchCtx := context.WithoutCancel(ctx)

	for {
		ran := false
		ch := c.group.DoChan(key, func() (any, error) {
			ran = true
			c.metrics.IncFetch(c.resource)
			started := c.current(key)
			value, err := fetch(fetchCtx)
			return outcome[T]{value: value, err: err, gen: started}, nil
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res = <-ch:
		}

		out := res.Val.(outcome[T])
		if !ran {
			c.metrics.IncShared(c.resource)
		}
		if out.gen < requested {
			continue
		}
		c.commit(key, out, apply)
		return out.err
	}
}

// Generation returns the last issued and last applied generations for key.
func (c *Coalescer[T]) Generation(key string) (issued, applied uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issued[key], c.applied[key]
}

func (c *Coalescer[T]) issue(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[key]++
	return c.issued[key]
}

func (c *Coalescer[T]) current(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issued[key]
}

func (c *Coalescer[T]) commit(key string, out outcome[T], apply Apply[T]) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	if out.gen <= c.applied[key] {
		c.mu.Unlock()
		return
	}
	c.applied[key] = out.gen
	c.mu.Unlock()

	if apply != nil {
		apply(out.value, out.err)
	}
}
