package threadrun

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared with the other threadrun SDKs.
const (
	CodeTimeout      = "TIMEOUT"
	CodeNetworkError = "NETWORK_ERROR"
	CodeStreamError  = "STREAM_ERROR"
)

// Error is the root error type returned by the Go SDK. Every failure the
// client surfaces — transport, HTTP, timeout, or an explicit stream error
// event — is an *Error so callers can branch on Status and Code.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("threadrun: %s (status %d)", e.Message, e.Status)
	if e.Code != "" {
		base = fmt.Sprintf("%s [%s]", base, e.Code)
	}
	return base
}

// Unwrap exposes the wrapped cause when available.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTimeout reports whether err is a deadline-exceeded failure.
func IsTimeout(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == CodeTimeout
}

// IsStreamError reports whether err came from an explicit error event
// emitted by the server mid-stream.
func IsStreamError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == CodeStreamError
}

func newError(status int, message string, opts ...func(*Error)) *Error {
	err := &Error{
		Status:  status,
		Message: message,
	}
	for _, opt := range opts {
		opt(err)
	}
	return err
}

func withCode(code string) func(*Error) {
	return func(e *Error) {
		e.Code = code
	}
}

func withDetails(details map[string]interface{}) func(*Error) {
	return func(e *Error) {
		e.Details = details
	}
}

func withCause(err error) func(*Error) {
	return func(e *Error) {
		e.Cause = err
	}
}

func newTimeoutError(limit string, cause error) *Error {
	return newError(
		http.StatusRequestTimeout,
		fmt.Sprintf("operation exceeded the %s deadline", limit),
		withCode(CodeTimeout),
		withCause(cause),
	)
}

func newNetworkError(message string, cause error) *Error {
	return newError(
		http.StatusInternalServerError,
		message,
		withCode(CodeNetworkError),
		withCause(cause),
	)
}
