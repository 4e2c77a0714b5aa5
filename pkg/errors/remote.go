package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// FallbackMessage is surfaced when a failure carries no readable text.
const FallbackMessage = "Unknown error"

// RemoteFault captures a failed remote procedure response. BodyMessage is the
// structured error body's message, Message the generic message field and Raw the
// literal response text.
type RemoteFault struct {
	StatusCode  int
	BodyMessage string
	Message     string
	Raw         string
}

func (f *RemoteFault) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("remote status %d: %s", f.StatusCode, f.text())
}

func (f *RemoteFault) text() string {
	for _, candidate := range []string{f.BodyMessage, f.Message, f.Raw} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// AsRemoteFault extracts a RemoteFault from the error chain.
func AsRemoteFault(err error) *RemoteFault {
	if err == nil {
		return nil
	}
	var fault *RemoteFault
	if stdErrors.As(err, &fault) {
		return fault
	}
	return nil
}

// Describe normalizes err into the message shown to the user: the structured
// error body first, then the generic message field, then the literal text, then
// FallbackMessage.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if fault := AsRemoteFault(err); fault != nil {
		if msg := fault.text(); msg != "" {
			return msg
		}
		return FallbackMessage
	}
	if typed := As(err); typed != nil {
		if msg := strings.TrimSpace(typed.Message()); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackMessage
}
