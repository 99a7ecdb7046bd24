// Package saga turns persisted events into follow-up commands.
//
// A Saga consumes the log under a consumer group, starting after the group's
// committed offset. For every event it derives at most one command, submits
// it and only then commits the event's sequence. A crash between submitting
// and committing redelivers the event on restart; command validation makes
// the second submission a rejection or an idempotent success.
//
// A Supervisor owns a long-running task such as Saga.Run and restarts it
// with exponential backoff when it fails:
//
//	s := saga.New(log, "certificate-saga", certificate.DeriveFollowUp, submit)
//	sup := saga.NewSupervisor("certificate-saga", s.Run, saga.WithLogger(l))
//	g.Go(sup.Run(ctx))
//
// Restarts are unlimited unless WithMaxRestarts is set.
package saga
