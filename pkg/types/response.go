package types

// SuccessEnvelope is the body of every 2xx response: {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the body of every failed response: {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError carries a stable code, a client-safe message and, for codes that
// permit it, structured details such as per-field validation messages.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
