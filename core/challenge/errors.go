package challenge

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/letsautomate/core/aggregate"
)

var (
	ErrRecordNotPropagated    = errors.New("DNS record not found")
	ErrChallengeNotAccepted   = errors.New("challenge not accepted")
	ErrCertificateNotAccepted = errors.New("certificate not accepted")
	ErrChallengeInvalid       = errors.New("challenge rejected by CA")
	ErrOrderInvalid           = errors.New("order rejected by CA")
	ErrNoDNS01Challenge       = errors.New("authorization has no dns-01 challenge")
	ErrMissingDependency      = errors.New("challenge: missing dependency")
	ErrCleanup                = errors.New("remove challenge records")
)

// budgetError is returned when a polling budget runs out. It matches both its
// sentinel and aggregate.ErrTimeout.
type budgetError struct {
	sentinel error
	message  string
}

func (e *budgetError) Error() string { return e.message }

func (e *budgetError) Is(target error) bool {
	return target == e.sentinel || target == aggregate.ErrTimeout
}

func notPropagated(timeout time.Duration) error {
	return &budgetError{
		sentinel: ErrRecordNotPropagated,
		message:  fmt.Sprintf("%s after %s", ErrRecordNotPropagated, humanDuration(timeout)),
	}
}

func challengeNotAccepted(identifier string) error {
	return &budgetError{
		sentinel: ErrChallengeNotAccepted,
		message:  fmt.Sprintf("%s for %s", ErrChallengeNotAccepted, identifier),
	}
}

func certificateNotAccepted(names []string) error {
	return &budgetError{
		sentinel: ErrCertificateNotAccepted,
		message:  fmt.Sprintf("%s for %v", ErrCertificateNotAccepted, names),
	}
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if h := int(d / time.Hour); h > 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	return d.String()
}
