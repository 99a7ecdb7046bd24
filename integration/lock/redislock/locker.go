package redislock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/letsautomate/core/aggregate"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

const (
	releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

	refreshScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`
)

// releaseTimeout bounds the release call made after the caller's ctx is gone.
const releaseTimeout = 5 * time.Second

// Client is the subset of go-redis the locker uses.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

var _ aggregate.Locker = (*Locker)(nil)

// Locker is a distributed aggregate.Locker.
type Locker struct {
	client Client
	opts   options
}

// New creates a Locker on client.
func New(client Client, opts ...Option) (*Locker, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	o := options{
		ttl:           DefaultTTL,
		retryInterval: DefaultRetryInterval,
		prefix:        DefaultPrefix,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Locker{client: client, opts: o}, nil
}

// Lock blocks until key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	redisKey := l.opts.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.opts.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, errors.Join(ErrRedis, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.opts.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.keepAlive(ctx, redisKey, token, stop)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()

			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if err := l.release(rctx, redisKey, token); err != nil {
				l.opts.log.WarnContext(rctx, "failed to release command lock",
					logger.Component("redislock"),
					slog.String("key", key),
					logger.Error(err))
			}
		})
	}, nil
}

func (l *Locker) release(ctx context.Context, key, token string) error {
	n, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
	if err != nil {
		return errors.Join(ErrRedis, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

func (l *Locker) refresh(ctx context.Context, key, token string) error {
	n, err := l.client.Eval(ctx, refreshScript, []string{key}, token, l.opts.ttl.Milliseconds()).Int64()
	if err != nil {
		return errors.Join(ErrRedis, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// keepAlive extends the lock every ttl/3 until stop is closed. It ignores
// cancellation of ctx; only unlock ends it.
func (l *Locker) keepAlive(ctx context.Context, key, token string, stop <-chan struct{}) {
	ctx = context.WithoutCancel(ctx)
	ticker := time.NewTicker(max(l.opts.ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := l.refresh(ctx, key, token); err != nil {
				l.opts.log.WarnContext(ctx, "failed to extend command lock",
					logger.Component("redislock"),
					slog.String("key", key),
					logger.Error(err))
				if errors.Is(err, ErrNotHeld) {
					return
				}
			}
		}
	}
}
