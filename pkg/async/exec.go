package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ExecFuture is the pending result of a function that only returns an error.
type ExecFuture struct {
	err  error
	done chan struct{}
}

// Await blocks until the function returns and yields its error.
func (f *ExecFuture) Await() error {
	<-f.done
	return f.err
}

// AwaitWithTimeout is Await bounded by timeout. ErrTimeout is returned when the
// function is still running once the timeout elapses.
func (f *ExecFuture) AwaitWithTimeout(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.err
	case <-timer.C:
		return ErrTimeout
	}
}

// AwaitContext is Await bounded by ctx. ctx.Err() is returned when ctx is
// done before the function returns.
func (f *ExecFuture) AwaitContext(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsComplete reports whether the function has returned, without blocking.
func (f *ExecFuture) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Exec runs fn(ctx, param) in a new goroutine.
// A context that is already done short-circuits with ctx.Err().
// A panic inside fn is recovered and reported as the future's error.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *ExecFuture {
	f := &ExecFuture{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("async: recovered panic: %v", r)
			}
		}()

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}

		f.err = fn(ctx, param)
	}()

	return f
}

// ExecAll waits for every future and joins all non-nil errors.
func ExecAll(futures ...*ExecFuture) error {
	var errs []error
	for _, future := range futures {
		if err := future.Await(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracker keeps futures that were started and not awaited by their creator.
// The zero value is ready to use.
type Tracker struct {
	mu      sync.Mutex
	futures []*ExecFuture
	failed  []error
}

// Track registers f and returns it.
func (t *Tracker) Track(f *ExecFuture) *ExecFuture {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finished futures are dropped; their errors are kept for Wait.
	alive := t.futures[:0]
	for _, existing := range t.futures {
		if !existing.IsComplete() {
			alive = append(alive, existing)
			continue
		}
		if existing.err != nil {
			t.failed = append(t.failed, existing.err)
		}
	}
	t.futures = append(alive, f)
	return f
}

// Pending returns the number of tracked futures that are still running.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, f := range t.futures {
		if !f.IsComplete() {
			n++
		}
	}
	return n
}

// Failed returns the number of tracked futures that returned an error.
func (t *Tracker) Failed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.failed)
	for _, f := range t.futures {
		if f.IsComplete() && f.err != nil {
			n++
		}
	}
	return n
}

// Wait blocks until every tracked future has completed and returns their
// joined errors, including those of futures dropped by Track.
func (t *Tracker) Wait() error {
	t.mu.Lock()
	futures := make([]*ExecFuture, len(t.futures))
	copy(futures, t.futures)
	failed := make([]error, len(t.failed))
	copy(failed, t.failed)
	t.mu.Unlock()

	return errors.Join(append(failed, ExecAll(futures...))...)
}

// WaitWithTimeout is Wait bounded by timeout.
func (t *Tracker) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- t.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrTimeout
	}
}
