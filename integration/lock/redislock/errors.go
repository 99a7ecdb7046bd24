package redislock

import "errors"

var (
	ErrNilClient = errors.New("redislock: redis client is required")
	ErrEmptyKey  = errors.New("redislock: lock key is required")
	ErrRedis     = errors.New("redislock: redis command failed")
	ErrNotHeld   = errors.New("redislock: lock is not held by this token")
)
