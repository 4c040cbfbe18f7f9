package classifier

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotReady is returned by a Holder whose model has not finished loading.
	ErrNotReady = errors.New("classifier not ready")
	// ErrUnknownBackend is returned by New for unregistered backend names.
	ErrUnknownBackend = errors.New("unknown classifier backend")
)

// APIError represents a non-2xx response from a model server.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error: status=%d", e.StatusCode)
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.RequestID != "" {
		msg += " request_id=" + e.RequestID
	}
	if e.Message != "" {
		msg += " message=" + e.Message
	}
	return msg
}

// AuthError indicates authentication/authorization failures (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// BadRequestError indicates the model server rejected the payload (400/422).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// ServerError indicates 5xx errors from the model server.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("model server error: %s", e.APIError.Error()) }

// UnreachableError indicates the model server could not be contacted.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("model server unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("model server unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// OutputError reports a classifier result that breaks the contract
// (wrong length, label outside {0,1}, probability outside [0,1]).
type OutputError struct {
	Op     string
	Reason string
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s: invalid classifier output: %s", e.Op, e.Reason)
}
