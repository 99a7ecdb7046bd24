// Package renewal periodically renews certificates that are about to expire.
//
// Each tick the Scheduler replays the certificate state, selects every
// certificate whose expiry is strictly before now plus the renewal window
// (30 days by default) and submits a StartRenewCertificate command for it,
// a few at a time. A failing entry is logged and the rest of the tick
// continues; a tick that cannot load the state is logged and the next tick
// runs on schedule.
//
// The scheduler follows the errgroup lifecycle used across the module:
//
//	s, err := renewal.New(service, service, renewal.WithInterval(time.Hour))
//	g.Go(s.Run(ctx))
package renewal
