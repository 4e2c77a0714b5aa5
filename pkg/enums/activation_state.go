package enums

import "fmt"

// ActivationState is the one-way order activation lifecycle.
type ActivationState string

const (
	ActivationStateInactive   ActivationState = "inactive"
	ActivationStateActivating ActivationState = "activating"
	ActivationStateActivated  ActivationState = "activated"
)

var validActivationStates = []ActivationState{
	ActivationStateInactive,
	ActivationStateActivating,
	ActivationStateActivated,
}

// String implements fmt.Stringer.
func (s ActivationState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ActivationState.
func (s ActivationState) IsValid() bool {
	for _, candidate := range validActivationStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActivated reports whether edits on the order are frozen.
func (s ActivationState) IsActivated() bool {
	return s == ActivationStateActivated
}

// ParseActivationState converts raw input into an ActivationState.
func ParseActivationState(value string) (ActivationState, error) {
	for _, candidate := range validActivationStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activation state %q", value)
}
