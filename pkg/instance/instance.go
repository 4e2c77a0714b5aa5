package instance

import (
	"os"
	"strconv"
	"strings"
)

// GetID returns the identifier this process stamps on the events it
// publishes. An empty result lets the notifier pick a random one.
func GetID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return ""
	}
	return host + "-" + strconv.Itoa(os.Getpid())
}
