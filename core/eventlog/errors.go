package eventlog

import (
	"errors"
	"fmt"
)

var (
	ErrStorage          = errors.New("eventlog: storage failure")
	ErrMissingEntityID  = errors.New("eventlog: entity id is required")
	ErrMissingEventType = errors.New("eventlog: event type is required")
	ErrMissingPayload   = errors.New("eventlog: payload is required")
	ErrInvalidPayload   = errors.New("eventlog: payload is not valid JSON")
	ErrMissingGroupID   = errors.New("eventlog: consumer group id is required")
	ErrInvalidSequence  = errors.New("eventlog: sequence must not be negative")
	ErrClosed           = errors.New("eventlog: log closed")
)

// WrapStorage marks err as a storage failure. Nil stays nil.
func WrapStorage(err error) error {
	if err == nil || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
