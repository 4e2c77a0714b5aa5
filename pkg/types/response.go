package types

// SuccessEnvelope wraps every successful payload. Notices holds the
// notifications raised while the request was handled.
type SuccessEnvelope struct {
	Data    any `json:"data"`
	Notices any `json:"notices,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error   APIError `json:"error"`
	Notices any      `json:"notices,omitempty"`
}
