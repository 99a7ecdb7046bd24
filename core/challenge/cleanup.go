package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/letsautomate/core/logger"
	"github.com/dmitrymomot/letsautomate/pkg/async"
)

type cleanupTarget struct {
	domain string
	label  string
}

type cleanupJob struct {
	cleanupTarget
	ids []string
}

// scheduleCleanup removes the records with ids in the background. It
// outlives ctx's cancellation but keeps its values.
func (o *Orchestrator) scheduleCleanup(ctx context.Context, domain, label string, ids []string, retries int) {
	job := cleanupJob{cleanupTarget: cleanupTarget{domain: domain, label: label}, ids: ids}

	o.cleanupMu.Lock()
	defer o.cleanupMu.Unlock()

	for target, f := range o.inflight {
		if f.IsComplete() {
			delete(o.inflight, target)
		}
	}
	o.inflight[job.cleanupTarget] = o.cleanups.Track(async.Exec(context.WithoutCancel(ctx), job, func(ctx context.Context, j cleanupJob) error {
		ctx, cancel := context.WithTimeout(ctx, o.cleanupTimeout)
		defer cancel()

		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(o.cleanupInterval), uint64(retries)),
			ctx,
		)
		remaining := j.ids
		err := backoff.Retry(func() error {
			var err error
			remaining, err = o.deleteRecords(ctx, j.domain, remaining)
			return err
		}, policy)
		if err != nil {
			o.logger.ErrorContext(ctx, "failed to remove challenge records",
				logger.Domain(j.domain),
				slog.String("record", j.label),
				logger.Count("remaining", len(remaining)),
				logger.Error(err))
			return fmt.Errorf("%w %s in %s: %w", ErrCleanup, j.label, j.domain, err)
		}
		o.logger.DebugContext(ctx, "challenge records removed", logger.Domain(j.domain), slog.String("record", j.label))
		return nil
	}))
}

// awaitCleanup blocks until the cleanup scheduled for label by an earlier
// order has finished. Its outcome was already logged.
func (o *Orchestrator) awaitCleanup(ctx context.Context, domain, label string) error {
	o.cleanupMu.Lock()
	f := o.inflight[cleanupTarget{domain: domain, label: label}]
	o.cleanupMu.Unlock()
	if f == nil || f.IsComplete() {
		return nil
	}

	o.logger.DebugContext(ctx, "waiting for previous challenge cleanup", logger.Domain(domain), slog.String("record", label))
	if err := f.AwaitContext(ctx); err != nil && ctx.Err() != nil {
		return fmt.Errorf("wait for challenge cleanup: %w", ctx.Err())
	}
	return nil
}

// deleteRecords deletes the records with ids and returns those still present.
func (o *Orchestrator) deleteRecords(ctx context.Context, domain string, ids []string) ([]string, error) {
	var (
		left []string
		errs []error
	)
	for _, id := range ids {
		if err := o.dns.DeleteRecord(ctx, domain, id); err != nil {
			left = append(left, id)
			errs = append(errs, err)
		}
	}
	return left, errors.Join(errs...)
}
