// Package health serves liveness and readiness probes for the process.
//
// Readiness runs every registered check and reports each result:
//
//	srv := health.New(":8081", health.WithLogger(log))
//	srv.Register("postgres", pg.Healthcheck(pool))
//	srv.Register("scheduler", scheduler.Healthcheck)
//	eg.Go(srv.Run(ctx))
//
// Routes: GET /health/live and GET /health/ready.
package health
