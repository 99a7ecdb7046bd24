package health

import "errors"

var (
	ErrMissingAddress       = errors.New("health server address is required")
	ErrServerAlreadyRunning = errors.New("health server is already running")
	ErrCheckFailed          = errors.New("health check failed")
)
