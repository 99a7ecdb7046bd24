package pgstore

import "errors"

var (
	ErrNilPool        = errors.New("pgstore: connection pool is required")
	ErrListenFailed   = errors.New("pgstore: notification listener failed")
	ErrBadNotifyValue = errors.New("pgstore: malformed notification payload")
)
