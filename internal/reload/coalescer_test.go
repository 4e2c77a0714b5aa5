package reload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalescerSequentialCallsEachFetch(t *testing.T) {
	c := New[int]("catalog", nil)
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}
	var got []int
	apply := func(v int, err error) { got = append(got, v) }

	require.NoError(t, c.Do(context.Background(), "ord-1", fetch, apply))
	require.NoError(t, c.Do(context.Background(), "ord-1", fetch, apply))

	assert.Equal(t, []int{1, 2}, got)
	issued, applied := c.Generation("ord-1")
	assert.Equal(t, uint64(2), issued)
	assert.Equal(t, uint64(2), applied)
}

func TestCoalescerRequestDuringFlightGetsFreshFetch(t *testing.T) {
	c := New[int]("catalog", nil)
	gate := make(chan struct{})
	started := make(chan struct{}, 4)
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		n := calls.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-gate
		}
		return int(n), nil
	}

	var mu sync.Mutex
	var got []int
	apply := func(v int, err error) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Do(context.Background(), "ord-1", fetch, apply))
	}()
	<-started

	go func() {
		defer wg.Done()
		assert.NoError(t, c.Do(context.Background(), "ord-1", fetch, apply))
	}()
	require.Eventually(t, func() bool {
		issued, _ := c.Generation("ord-1")
		return issued == 2
	}, time.Second, time.Millisecond)

	close(gate)
	wg.Wait()

	assert.Equal(t, int32(2), calls.Load())
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	assert.Equal(t, 2, got[len(got)-1])
	_, applied := c.Generation("ord-1")
	assert.Equal(t, uint64(2), applied)
}

func TestCoalescerPassesErrorsToApply(t *testing.T) {
	c := New[int]("catalog", nil)
	boom := errors.New("boom")
	var appliedErr error

	err := c.Do(context.Background(), "ord-1", func(ctx context.Context) (int, error) {
		return 0, boom
	}, func(v int, err error) {
		appliedErr = err
	})

	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, appliedErr, boom)
}

func TestCoalescerCanceledWaiterReturnsContextError(t *testing.T) {
	c := New[int]("catalog", nil)
	release := make(chan struct{})
	done := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		defer close(done)
		<-release
		assert.NoError(t, ctx.Err())
		return 1, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Do(ctx, "ord-1", fetch, nil) }()

	require.Eventually(t, func() bool {
		issued, _ := c.Generation("ord-1")
		return issued == 1
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	<-done
}

func TestCoalescerKeysAreIndependent(t *testing.T) {
	c := New[string]("catalog", nil)
	values := map[string]string{}
	for _, key := range []string{"a", "b"} {
		k := key
		require.NoError(t, c.Do(context.Background(), k, func(ctx context.Context) (string, error) {
			return "value-" + k, nil
		}, func(v string, err error) {
			values[k] = v
		}))
	}
	assert.Equal(t, map[string]string{"a": "value-a", "b": "value-b"}, values)
}
