package types

// SuccessEnvelope wraps every successful API payload, so ledger reads and
// writes share one response shape.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a rejected ledger or registry call. Code
// carries the machine-readable rejection class; Details is populated only
// for validation failures.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError for transport.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
