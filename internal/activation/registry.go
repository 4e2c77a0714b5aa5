package activation

import (
	"sync"

	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

// Registry hands out one shared Store per order and drops it once the last
// holder releases it.
type Registry struct {
	remote Remote
	cache  Cache
	logg   *logger.Logger

	mu     sync.Mutex
	stores map[string]*entry
}

type entry struct {
	store *Store
	refs  int
}

func NewRegistry(remote Remote, cache Cache, logg *logger.Logger) *Registry {
	return &Registry{
		remote: remote,
		cache:  cache,
		logg:   logg,
		stores: make(map[string]*entry),
	}
}

// Acquire returns the order's store, creating it on first use.
func (r *Registry) Acquire(orderID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[orderID]
	if !ok {
		e = &entry{store: NewStore(orderID, r.remote, r.cache, r.logg)}
		r.stores[orderID] = e
	}
	e.refs++
	return e.store
}

// Release gives back one reference taken by Acquire.
func (r *Registry) Release(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[orderID]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.stores, orderID)
	}
}

// Lookup returns the live store for orderID, if any.
func (r *Registry) Lookup(orderID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[orderID]
	if !ok {
		return nil, false
	}
	return e.store, true
}
