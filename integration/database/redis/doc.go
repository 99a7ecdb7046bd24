// Package redis opens a go-redis client from a REDIS_URL and probes its health.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	ready := redis.Healthcheck(client)
//
// Connect accepts redis:// and rediss:// URLs. The client backs the
// distributed command locker in integration/lock/redislock.
package redis
