package backend

// Error is a failure reported by a generation backend. Code and StatusCode
// are filled when the upstream service supplied them; Details keeps the raw
// response body around for logs and is never shown to callers.
type Error struct {
	Provider   string `json:"provider"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Details    string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// BackendCode returns the service error code (e.g., "RESOURCE_EXHAUSTED").
func (e *Error) BackendCode() string {
	return e.Code
}

// HTTPStatus returns the HTTP status the service answered with, or 0 when
// the failure never reached the service.
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

// FaultDetails returns internal context for logs.
func (e *Error) FaultDetails() string {
	return e.Details
}

// Interface guard for Error
var _ error = &Error{}
