package activation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

const activatedValue = "1"

// Remote answers whether an order is activated.
type Remote interface {
	IsOrderActivated(ctx context.Context, orderID string) (bool, error)
}

// Cache persists the terminal activated state across instances.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ActivationKey(orderID string) string
}

// Watcher is told about every state transition.
type Watcher func(state enums.ActivationState)

// Store is the single activation source for one order. Activated is terminal:
// no call moves the state away from it.
type Store struct {
	orderID string
	remote  Remote
	cache   Cache
	logg    *logger.Logger

	mu       sync.Mutex
	state    enums.ActivationState
	fresh    bool
	watchers map[uint64]Watcher
	nextID   uint64
}

func NewStore(orderID string, remote Remote, cache Cache, logg *logger.Logger) *Store {
	return &Store{
		orderID:  orderID,
		remote:   remote,
		cache:    cache,
		logg:     logg,
		state:    enums.ActivationStateInactive,
		watchers: make(map[uint64]Watcher),
	}
}

func (s *Store) OrderID() string {
	return s.orderID
}

func (s *Store) State() enums.ActivationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) IsActivated() bool {
	return s.State().IsActivated()
}

// Invalidate marks the state stale so the next Ensure re-reads it.
func (s *Store) Invalidate() {
	s.mu.Lock()
	if !s.state.IsActivated() {
		s.fresh = false
	}
	s.mu.Unlock()
}

// Ensure refreshes only when the state is stale.
func (s *Store) Ensure(ctx context.Context) (enums.ActivationState, error) {
	s.mu.Lock()
	fresh := s.fresh
	state := s.state
	s.mu.Unlock()
	if fresh {
		return state, nil
	}
	return s.Refresh(ctx)
}

// Refresh reads the activation flag, preferring the cache. On error the prior
// state is kept and returned alongside the error.
func (s *Store) Refresh(ctx context.Context) (enums.ActivationState, error) {
	if current := s.State(); current.IsActivated() {
		return current, nil
	}
	if s.cachedActivated(ctx) {
		s.transition(enums.ActivationStateActivated)
		return enums.ActivationStateActivated, nil
	}
	if s.remote == nil {
		return s.State(), pkgerrors.New(pkgerrors.CodeDependency, "activation remote not configured")
	}

	activated, err := s.remote.IsOrderActivated(ctx, s.orderID)
	if err != nil {
		return s.State(), err
	}

	s.mu.Lock()
	s.fresh = true
	s.mu.Unlock()
	if activated {
		s.MarkActivated(ctx)
	}
	return s.State(), nil
}

// Begin moves inactive to activating.
func (s *Store) Begin() error {
	s.mu.Lock()
	switch s.state {
	case enums.ActivationStateActivated:
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already activated")
	case enums.ActivationStateActivating:
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order activation already in progress")
	}
	s.state = enums.ActivationStateActivating
	watchers := s.snapshotWatchers()
	s.mu.Unlock()

	notify(watchers, enums.ActivationStateActivating)
	return nil
}

// Fail returns an in-flight activation to inactive.
func (s *Store) Fail() {
	s.mu.Lock()
	if s.state != enums.ActivationStateActivating {
		s.mu.Unlock()
		return
	}
	s.state = enums.ActivationStateInactive
	watchers := s.snapshotWatchers()
	s.mu.Unlock()

	notify(watchers, enums.ActivationStateInactive)
}

// MarkActivated records the terminal state and caches it.
func (s *Store) MarkActivated(ctx context.Context) {
	if !s.transition(enums.ActivationStateActivated) {
		return
	}
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.ActivationKey(s.orderID), activatedValue, 0); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, s.orderID), "cache activation state failed: "+err.Error())
	}
}

// Watch registers w until the returned cancel func is called.
func (s *Store) Watch(w Watcher) (cancel func()) {
	if w == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = w
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) transition(next enums.ActivationState) bool {
	s.mu.Lock()
	if s.state.IsActivated() || s.state == next {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.fresh = true
	watchers := s.snapshotWatchers()
	s.mu.Unlock()

	notify(watchers, next)
	return true
}

func (s *Store) cachedActivated(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	value, err := s.cache.Get(ctx, s.cache.ActivationKey(s.orderID))
	if err != nil {
		if !errors.Is(err, goredis.Nil) && s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, s.orderID), "read activation cache failed: "+err.Error())
		}
		return false
	}
	return value == activatedValue
}

func (s *Store) snapshotWatchers() []Watcher {
	out := make([]Watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		out = append(out, w)
	}
	return out
}

func notify(watchers []Watcher, state enums.ActivationState) {
	for _, w := range watchers {
		w(state)
	}
}
