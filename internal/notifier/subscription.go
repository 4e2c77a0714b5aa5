package notifier

import (
	"context"
	"fmt"
	"sync"
)

// Subscription is one registered handler with its own delivery queue.
type Subscription struct {
	id      uint64
	name    string
	bus     *Bus
	handler Handler
	queue   chan Event
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// Unsubscribe stops delivery. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.bus.remove(s.id)
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})
	return nil
}

// Done is closed once the subscription goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) offer(evt Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.queue <- evt:
		return true
	default:
		return false
	}
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Subscription) run(ctx context.Context) {
	defer s.bus.wg.Done()
	defer close(s.done)
	for evt := range s.queue {
		if s.isClosed() {
			continue
		}
		s.dispatch(ctx, evt)
	}
}

func (s *Subscription) dispatch(ctx context.Context, evt Event) {
	defer func() {
		if r := recover(); r != nil && s.bus.logg != nil {
			ctx = s.bus.logg.WithFields(ctx, map[string]any{
				"subscription": s.name,
				"event_kind":   evt.Kind,
			})
			s.bus.logg.Error(ctx, "notifier handler panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	s.handler(ctx, evt)
}
