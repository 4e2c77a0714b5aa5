package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// OneOf reads key case-insensitively and accepts it only if it matches one of
// allowed. Anything else yields fallback.
func OneOf(key, fallback string, allowed ...string) string {
	val := strings.ToLower(Get(key, ""))
	for _, candidate := range allowed {
		if val == candidate {
			return candidate
		}
	}
	return fallback
}
