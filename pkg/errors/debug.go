package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorDump flattens an error chain into log fields.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	RootCause  string   `json:"root_cause,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	RemoteStatus  int    `json:"remote_status,omitempty"`
	RemoteMessage string `json:"remote_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.code
	}

	last := err
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
		last = e
	}
	if last != err {
		d.RootCause = last.Error()
	}

	if fault := AsRemoteFault(err); fault != nil {
		d.RemoteStatus, d.RemoteMessage = fault.StatusCode, fault.text()
	}
	return d
}
