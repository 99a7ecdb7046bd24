package saga

import "errors"

var (
	ErrStreamFailed      = errors.New("saga: event stream failed")
	ErrCommitFailed      = errors.New("saga: commit offset failed")
	ErrRedeliver         = errors.New("saga: command not recorded, event will be redelivered")
	ErrRestartsExhausted = errors.New("saga: restart limit reached")
	ErrHealthcheckFailed = errors.New("saga: healthcheck failed")
	ErrSupervisorStopped = errors.New("saga: supervised task is not running")
	ErrAlreadyRunning    = errors.New("saga: supervisor already running")
)
