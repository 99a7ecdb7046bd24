package renewal

import "errors"

var (
	ErrNilDependency       = errors.New("renewal: state source and submitter are required")
	ErrAlreadyStarted      = errors.New("renewal: scheduler already started")
	ErrNotStarted          = errors.New("renewal: scheduler not started")
	ErrHealthcheckFailed   = errors.New("renewal: healthcheck failed")
	ErrSchedulerNotRunning = errors.New("renewal: scheduler is not running")
	ErrStateUnavailable    = errors.New("renewal: last tick could not load state")
	ErrInvalidEntry        = errors.New("renewal: certificate entry is incomplete")
	ErrShutdownTimeout     = errors.New("renewal: shutdown timeout exceeded")
)
