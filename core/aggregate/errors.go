package aggregate

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service failed")
	ErrStorage         = errors.New("storage failed")
	ErrTimeout         = errors.New("timed out")
	ErrLock            = errors.New("failed to acquire command lock")
)

// ValidationError is a rejected command. Nothing was persisted.
type ValidationError struct {
	Message string
}

// Reject builds a ValidationError.
func Reject(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ExternalError is a failed call to ACME, DNS or a publisher. The failure has
// been recorded as an event.
type ExternalError struct {
	Cause error
}

// External wraps cause as an ExternalError. Nil stays nil.
func External(cause error) error {
	if cause == nil {
		return nil
	}
	var ext *ExternalError
	if errors.As(cause, &ext) {
		return cause
	}
	return &ExternalError{Cause: cause}
}

func (e *ExternalError) Error() string { return e.Cause.Error() }

func (e *ExternalError) Unwrap() error { return e.Cause }

func (e *ExternalError) Is(target error) bool { return target == ErrExternalService }

// StatusCode maps err to an HTTP status for callers exposing the runtime over HTTP.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
