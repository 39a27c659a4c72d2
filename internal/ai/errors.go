package ai

import "fmt"

// ConfigurationError indicates a missing or unusable backend configuration,
// such as an unset API token.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// AuthenticationError is raised for HTTP 401 responses from a backend.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return "backend authentication failed: " + e.Message
}

// BackendError is raised for any other non-2xx backend response. It carries
// the HTTP status and the error message parsed from the body when present.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
}

// ConnectionError wraps a transport-level failure reaching the backend.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "backend connection failed: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ParseError indicates malformed JSON or a response missing required fields.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "parse backend response failed: " + e.Message
}

// UnsupportedOperationError is raised when a retrieval operation is invoked
// on a backend that does not declare the capability.
type UnsupportedOperationError struct {
	Backend   string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("backend %q does not support %s", e.Backend, e.Operation)
}

// UploadError indicates a missing local file or an incomplete remote upload
// response.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return "retrieval upload failed: " + e.Message
}
