package notifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

const envelopeVersion = 1

// Event is a transient cross-view message about an order. Origin names the
// publishing process, Sender the publishing view within it.
type Event struct {
	ID          string               `json:"id"`
	Kind        enums.OrderEventKind `json:"kind"`
	OrderID     string               `json:"orderId"`
	ProductID   string               `json:"productId,omitempty"`
	OrderItemID string               `json:"orderItemId,omitempty"`
	Origin      string               `json:"origin"`
	Sender      string               `json:"sender,omitempty"`
	OccurredAt  time.Time            `json:"occurredAt"`
}

// ProductAdded describes a product that was just added to an order.
func ProductAdded(orderID, productID, orderItemID string) Event {
	return Event{
		Kind:        enums.OrderEventProductAdded,
		OrderID:     orderID,
		ProductID:   productID,
		OrderItemID: orderItemID,
	}
}

// LineRemoved describes an order line that was deleted.
func LineRemoved(orderID, orderItemID string) Event {
	return Event{
		Kind:        enums.OrderEventLineRemoved,
		OrderID:     orderID,
		OrderItemID: orderItemID,
	}
}

// OrderActivated describes an order that became read-only.
func OrderActivated(orderID string) Event {
	return Event{
		Kind:    enums.OrderEventOrderActivated,
		OrderID: orderID,
	}
}

type envelope struct {
	Version int   `json:"version"`
	Event   Event `json:"event"`
}

func encodeEvent(evt Event) ([]byte, error) {
	return json.Marshal(envelope{Version: envelopeVersion, Event: evt})
}

func decodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.Version != envelopeVersion {
		return Event{}, fmt.Errorf("unsupported event envelope version %d", env.Version)
	}
	if !env.Event.Kind.IsValid() {
		return Event{}, fmt.Errorf("invalid event kind %q", env.Event.Kind)
	}
	return env.Event, nil
}
