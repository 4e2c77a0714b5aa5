package enums

import "fmt"

// OrderEventKind names the messages carried by the cross-view notifier.
type OrderEventKind string

const (
	OrderEventProductAdded   OrderEventKind = "product_added"
	OrderEventLineRemoved    OrderEventKind = "line_removed"
	OrderEventOrderActivated OrderEventKind = "order_activated"
)

var validOrderEventKinds = []OrderEventKind{
	OrderEventProductAdded,
	OrderEventLineRemoved,
	OrderEventOrderActivated,
}

// String implements fmt.Stringer.
func (k OrderEventKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known OrderEventKind.
func (k OrderEventKind) IsValid() bool {
	for _, candidate := range validOrderEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseOrderEventKind converts raw input into an OrderEventKind.
func ParseOrderEventKind(value string) (OrderEventKind, error) {
	for _, candidate := range validOrderEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event kind %q", value)
}
