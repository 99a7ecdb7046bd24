// Package redislock implements aggregate.Locker on Redis, so several
// processes sharing one event log serialize commands per certificate key.
//
// A lock is a key set with SET NX PX holding a random token. While held, a
// background refresher extends the expiry every TTL/3. Release and refresh
// run as Lua scripts that act only when the stored token matches, so a
// process whose lock expired can never release or extend a lock another
// process has since acquired.
//
//	locker, err := redislock.New(client, redislock.WithTTL(30*time.Second))
//	if err != nil {
//		return err
//	}
//	svc := certificate.NewService(log, agg, aggregate.WithLocker(locker))
package redislock
