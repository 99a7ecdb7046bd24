package certificate

import "errors"

var (
	ErrUnknownEventType   = errors.New("certificate: unknown event type")
	ErrUnknownCommandType = errors.New("certificate: unknown command type")
	ErrMalformedCommand   = errors.New("certificate: malformed command")
	ErrMalformedEvent     = errors.New("certificate: malformed event")
	ErrEmptyOrder         = errors.New("certificate: orderer returned no certificate")
	ErrOrdererMissing     = errors.New("certificate: no orderer configured")
	ErrPublisherMissing   = errors.New("certificate: no publisher configured")
)
