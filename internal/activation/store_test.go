package activation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

type stubRemote struct {
	activated bool
	err       error
	calls     int
}

func (s *stubRemote) IsOrderActivated(ctx context.Context, orderID string) (bool, error) {
	s.calls++
	return s.activated, s.err
}

type stubCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newStubCache() *stubCache {
	return &stubCache{values: map[string]string{}}
}

func (c *stubCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (c *stubCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value.(string)
	return nil
}

func (c *stubCache) ActivationKey(orderID string) string {
	return "od:activation:" + orderID
}

func TestRefreshReadsRemoteAndCachesActivation(t *testing.T) {
	remote := &stubRemote{activated: true}
	cache := newStubCache()
	store := NewStore("ord-1", remote, cache, nil)

	state, err := store.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != enums.ActivationStateActivated {
		t.Fatalf("expected activated, got %s", state)
	}
	if cache.values["od:activation:ord-1"] != activatedValue {
		t.Fatalf("expected activation cached, got %v", cache.values)
	}

	if _, err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.calls != 1 {
		t.Fatalf("expected terminal state to skip remote, got %d calls", remote.calls)
	}
}

func TestRefreshUsesCacheBeforeRemote(t *testing.T) {
	remote := &stubRemote{}
	cache := newStubCache()
	cache.values["od:activation:ord-1"] = activatedValue
	store := NewStore("ord-1", remote, cache, nil)

	state, err := store.Refresh(context.Background())
	if err != nil || state != enums.ActivationStateActivated {
		t.Fatalf("expected cached activation, got %s %v", state, err)
	}
	if remote.calls != 0 {
		t.Fatalf("expected no remote calls, got %d", remote.calls)
	}
}

func TestRefreshFailureKeepsPriorState(t *testing.T) {
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	remote := &stubRemote{err: errors.New("timeout")}
	store := NewStore("ord-1", remote, cache, nil)

	state, err := store.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if state != enums.ActivationStateInactive {
		t.Fatalf("expected prior state, got %s", state)
	}
}

func TestActivationIsMonotonic(t *testing.T) {
	store := NewStore("ord-1", &stubRemote{}, nil, nil)
	store.MarkActivated(context.Background())

	store.Fail()
	store.Invalidate()
	if _, err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Begin(); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if !store.IsActivated() {
		t.Fatal("activation must never revert")
	}
}

func TestBeginAndFailTransitions(t *testing.T) {
	store := NewStore("ord-1", nil, nil, nil)
	var seen []enums.ActivationState
	cancel := store.Watch(func(state enums.ActivationState) {
		seen = append(seen, state)
	})

	if err := store.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.Begin(); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected conflict on double begin, got %v", err)
	}
	store.Fail()
	if store.State() != enums.ActivationStateInactive {
		t.Fatalf("expected inactive after failure, got %s", store.State())
	}
	if err := store.Begin(); err != nil {
		t.Fatalf("begin again: %v", err)
	}
	store.MarkActivated(context.Background())

	cancel()
	cancel()
	store.Fail()

	want := []enums.ActivationState{
		enums.ActivationStateActivating,
		enums.ActivationStateInactive,
		enums.ActivationStateActivating,
		enums.ActivationStateActivated,
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
}

func TestEnsureOnlyRefreshesWhenStale(t *testing.T) {
	remote := &stubRemote{}
	store := NewStore("ord-1", remote, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := store.Ensure(context.Background()); err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	if remote.calls != 1 {
		t.Fatalf("expected single remote call, got %d", remote.calls)
	}

	store.Invalidate()
	if _, err := store.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if remote.calls != 2 {
		t.Fatalf("expected refresh after invalidate, got %d", remote.calls)
	}
}

func TestRefreshWithoutRemote(t *testing.T) {
	store := NewStore("ord-1", nil, nil, nil)
	if _, err := store.Refresh(context.Background()); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRegistrySharesStoresPerOrder(t *testing.T) {
	reg := NewRegistry(&stubRemote{}, nil, nil)
	a := reg.Acquire("ord-1")
	b := reg.Acquire("ord-1")
	if a != b {
		t.Fatal("expected the same store for one order")
	}
	if reg.Acquire("ord-2") == a {
		t.Fatal("expected distinct stores per order")
	}

	reg.Release("ord-1")
	if _, ok := reg.Lookup("ord-1"); !ok {
		t.Fatal("store dropped while still referenced")
	}
	reg.Release("ord-1")
	if _, ok := reg.Lookup("ord-1"); ok {
		t.Fatal("expected store dropped after last release")
	}
	reg.Release("missing")
}
