package enums

import "fmt"

// ProductSource identifies where a catalog row comes from.
type ProductSource string

const (
	ProductSourceLocal    ProductSource = "local"
	ProductSourceExternal ProductSource = "external"
)

var validProductSources = []ProductSource{
	ProductSourceLocal,
	ProductSourceExternal,
}

// String implements fmt.Stringer.
func (s ProductSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductSource.
func (s ProductSource) IsValid() bool {
	for _, candidate := range validProductSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductSource converts raw input into a ProductSource.
func ParseProductSource(value string) (ProductSource, error) {
	for _, candidate := range validProductSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product source %q", value)
}

// AddStatus tracks whether a catalog row has been added to the order.
type AddStatus string

const (
	AddStatusAvailable AddStatus = "available"
	AddStatusAdded     AddStatus = "added"
)

// String implements fmt.Stringer.
func (s AddStatus) String() string {
	return string(s)
}
