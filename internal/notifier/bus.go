package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultQueueSize = 32

// ErrClosed is returned when the bus no longer accepts work.
var ErrClosed = errors.New("notifier bus closed")

// Handler reacts to a delivered event. Handlers run on the subscription's own goroutine.
type Handler func(ctx context.Context, evt Event)

// Forwarder carries locally published events beyond the process.
type Forwarder interface {
	Name() string
	Forward(ctx context.Context, evt Event) error
}

// Bus is the process-local publish/subscribe channel shared by the views.
type Bus struct {
	origin    string
	queueSize int
	logg      *logger.Logger
	baseCtx   context.Context
	cancel    context.CancelFunc

	mu         sync.RWMutex
	subs       map[uint64]*Subscription
	nextID     uint64
	forwarders []Forwarder
	closed     bool
	wg         sync.WaitGroup
}

func NewBus(cfg config.NotifierConfig, origin string, logg *logger.Logger) *Bus {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	if origin == "" {
		origin = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		origin:    origin,
		queueSize: size,
		logg:      logg,
		baseCtx:   ctx,
		cancel:    cancel,
		subs:      make(map[uint64]*Subscription),
	}
}

// Origin identifies events published by this process.
func (b *Bus) Origin() string {
	return b.origin
}

// AddForwarder registers a forwarder for locally published events.
func (b *Bus) AddForwarder(f Forwarder) {
	if f == nil {
		return
	}
	b.mu.Lock()
	b.forwarders = append(b.forwarders, f)
	b.mu.Unlock()
}

// Subscribe registers handler until the returned subscription is cancelled.
func (b *Bus) Subscribe(name string, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		name:    name,
		bus:     b,
		handler: handler,
		queue:   make(chan Event, b.queueSize),
		done:    make(chan struct{}),
	}
	b.subs[sub.id] = sub
	b.wg.Add(1)
	go sub.run(b.baseCtx)

	if b.logg != nil {
		b.logg.Debug(b.logg.WithField(b.baseCtx, "subscription", name), "notifier subscription added")
	}
	return sub, nil
}

// Publish stamps evt and hands it to every subscription and forwarder without
// waiting for any of them.
func (b *Bus) Publish(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Origin == "" {
		evt.Origin = b.origin
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	if !evt.Kind.IsValid() {
		return evt, fmt.Errorf("invalid event kind %q", evt.Kind)
	}

	if err := b.Deliver(ctx, evt); err != nil {
		return evt, err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return evt, ErrClosed
	}
	forwarders := append([]Forwarder(nil), b.forwarders...)
	b.wg.Add(len(forwarders))
	b.mu.RUnlock()
	for _, f := range forwarders {
		go b.forward(ctx, f, evt)
	}
	return evt, nil
}

// Deliver fans evt out to local subscriptions only. Relays use it for events
// that arrive from other instances.
func (b *Bus) Deliver(ctx context.Context, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.subs {
		if !sub.offer(evt) && b.logg != nil {
			fields := map[string]any{
				"subscription": sub.name,
				"event_id":     evt.ID,
				"event_kind":   evt.Kind,
				"order_id":     evt.OrderID,
			}
			b.logg.Warn(b.logg.WithFields(ctx, fields), "notifier queue full, event dropped")
		}
	}
	return nil
}

func (b *Bus) forward(ctx context.Context, f Forwarder, evt Event) {
	defer b.wg.Done()
	if err := f.Forward(context.WithoutCancel(ctx), evt); err != nil && b.logg != nil {
		fields := map[string]any{
			"forwarder":  f.Name(),
			"event_id":   evt.ID,
			"event_kind": evt.Kind,
		}
		b.logg.Error(b.logg.WithFields(ctx, fields), "forward event failed", err)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close cancels every subscription and waits for in-flight handlers and forwards.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	var err error
	for _, sub := range subs {
		err = multierr.Append(err, sub.Unsubscribe())
	}
	b.cancel()
	b.wg.Wait()
	return err
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}
