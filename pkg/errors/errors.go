package errors

import (
	stdErrors "errors"
	"net/http"
)

// Code classifies a failure for the HTTP layer and the logs.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeRejected      Code = "REMOTE_REJECTED"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is what the response writer needs to know about a Code. When
// EchoMessage is set the error's own message replaces Public.
type Metadata struct {
	Status        int
	Public        string
	Retryable     bool
	ExposeDetails bool
	EchoMessage   bool
}

var catalog = map[Code]Metadata{
	CodeValidation:    {Status: http.StatusBadRequest, Public: "validation failed", ExposeDetails: true, EchoMessage: true},
	CodeNotFound:      {Status: http.StatusNotFound, Public: "resource not found", EchoMessage: true},
	CodeStateConflict: {Status: http.StatusUnprocessableEntity, Public: "state transition disallowed", ExposeDetails: true, EchoMessage: true},
	CodeRejected:      {Status: http.StatusUnprocessableEntity, Public: "request rejected by the platform", ExposeDetails: true, EchoMessage: true},
	CodeIdempotency:   {Status: http.StatusConflict, Public: "idempotency key reused", ExposeDetails: true, EchoMessage: true},
	CodeInternal:      {Status: http.StatusInternalServerError, Public: "internal server error", Retryable: true},
	CodeDependency:    {Status: http.StatusServiceUnavailable, Public: "dependency unavailable", Retryable: true, ExposeDetails: true},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	meta, ok := catalog[code]
	if !ok {
		return catalog[CodeInternal]
	}
	return meta
}

// Error is a coded error with an optional cause and client-visible details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether the outermost typed error in err carries code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
