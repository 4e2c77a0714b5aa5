package notifier

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

const defaultPublishTimeout = 5 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubExporter ships locally originated events to a Pub/Sub topic for downstream consumers.
type PubSubExporter struct {
	pub    publisher
	origin string
	topic  string
}

func NewPubSubExporter(pub *gcppubsub.Publisher, topic, origin string) (*PubSubExporter, error) {
	if pub == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return newPubSubExporter(&gcpPublisher{Publisher: pub}, topic, origin), nil
}

func newPubSubExporter(pub publisher, topic, origin string) *PubSubExporter {
	return &PubSubExporter{pub: pub, topic: topic, origin: origin}
}

func (e *PubSubExporter) Name() string {
	return "pubsub:" + e.topic
}

func (e *PubSubExporter) Forward(ctx context.Context, evt Event) error {
	if evt.Origin != e.origin {
		return nil
	}
	data, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":    evt.ID,
			"event_kind":  evt.Kind.String(),
			"order_id":    evt.OrderID,
			"occurred_at": evt.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := e.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	_, err = result.Get(publishCtx)
	return err
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
