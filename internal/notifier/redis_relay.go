package notifier

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

type relayClient interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
}

// RedisRelay mirrors bus traffic across instances over a Redis channel.
type RedisRelay struct {
	client  relayClient
	channel string
	bus     *Bus
	logg    *logger.Logger
}

func NewRedisRelay(client relayClient, channel string, bus *Bus, logg *logger.Logger) (*RedisRelay, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if bus == nil {
		return nil, errors.New("notifier bus is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("redis channel is required")
	}
	return &RedisRelay{client: client, channel: channel, bus: bus, logg: logg}, nil
}

func (r *RedisRelay) Name() string {
	return "redis:" + r.channel
}

// Forward publishes events that originated on this instance.
func (r *RedisRelay) Forward(ctx context.Context, evt Event) error {
	if evt.Origin != r.bus.Origin() {
		return nil
	}
	payload, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload)
}

// Run consumes the channel until ctx is done, delivering foreign events locally.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	if r.logg != nil {
		r.logg.Info(r.logg.WithField(ctx, "channel", r.channel), "notifier redis relay started")
	}
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, payload []byte) {
	evt, err := decodeEvent(payload)
	if err != nil {
		if r.logg != nil {
			r.logg.Warn(r.logg.WithField(ctx, "channel", r.channel), "discarding relay message: "+err.Error())
		}
		return
	}
	if evt.Origin == r.bus.Origin() {
		return
	}
	if err := r.bus.Deliver(ctx, evt); err != nil && r.logg != nil {
		r.logg.Error(ctx, "deliver relayed event", err)
	}
}
