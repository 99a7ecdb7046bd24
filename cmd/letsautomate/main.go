package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/letsautomate/core/aggregate"
	"github.com/dmitrymomot/letsautomate/core/certificate"
	"github.com/dmitrymomot/letsautomate/core/challenge"
	"github.com/dmitrymomot/letsautomate/core/config"
	"github.com/dmitrymomot/letsautomate/core/health"
	"github.com/dmitrymomot/letsautomate/core/logger"
	"github.com/dmitrymomot/letsautomate/core/renewal"
	"github.com/dmitrymomot/letsautomate/core/saga"
	"github.com/dmitrymomot/letsautomate/integration/acme/lego"
	"github.com/dmitrymomot/letsautomate/integration/database/pg"
	"github.com/dmitrymomot/letsautomate/integration/database/redis"
	"github.com/dmitrymomot/letsautomate/integration/dns/rfc2136"
	"github.com/dmitrymomot/letsautomate/integration/dns/route53"
	"github.com/dmitrymomot/letsautomate/integration/eventlog/pgstore"
	"github.com/dmitrymomot/letsautomate/integration/lock/redislock"
	"github.com/dmitrymomot/letsautomate/integration/publisher/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg Config
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("letsautomate stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("letsautomate stopped")
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	switch cfg.LockBackend {
	case lockMemory, lockRedis:
	default:
		return fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
	switch cfg.DNSProvider {
	case dnsRFC2136, dnsRoute53:
	default:
		return fmt.Errorf("unknown dns provider %q", cfg.DNSProvider)
	}

	db, err := pg.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := pgstore.Migrate(ctx, db, log.With(logger.Component("migration"))); err != nil {
		return err
	}
	events, err := pgstore.New(db, pgstore.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = events.Close() }()

	accounts, err := lego.NewAccountStoreFromConfig(ctx, cfg.ACME, db, log.With(logger.Component("migration")))
	if err != nil {
		return err
	}
	dns, err := newDNS(ctx, cfg.DNSProvider, log)
	if err != nil {
		return err
	}
	publisher, err := s3.New(ctx, cfg.S3, s3.WithLogger(log))
	if err != nil {
		return err
	}

	orchestrator := challenge.NewFromConfig(cfg.Challenge, lego.NewFromConfig(cfg.ACME), accounts, dns,
		challenge.WithLogger(log))
	defer func() {
		if err := orchestrator.Wait(); err != nil {
			log.Warn("dns cleanup incomplete", logger.Component("challenge"), logger.Error(err))
		}
	}()

	probes, err := health.NewFromConfig(cfg.Health, health.WithLogger(log.With(logger.Component("health"))))
	if err != nil {
		return err
	}
	probes.Register("postgres", pg.Healthcheck(db))
	probes.Register("s3", publisher.Healthcheck)
	if hc, ok := dns.(interface{ Healthcheck(context.Context) error }); ok {
		probes.Register("dns", hc.Healthcheck)
	}

	runtimeOpts := []aggregate.Option{aggregate.WithLogger(log)}
	if cfg.LockBackend == lockRedis {
		client, err := connectRedis(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		locker, err := newRedisLocker(client, log)
		if err != nil {
			return err
		}
		probes.Register("redis", redis.Healthcheck(client))
		runtimeOpts = append(runtimeOpts, aggregate.WithLocker(locker))
	}

	agg := certificate.NewAggregate(orchestrator, publisher, certificate.WithAggregateLogger(log))
	service := certificate.NewService(events, agg, runtimeOpts...)
	view := certificate.NewDomainView(events, certificate.WithViewLogger(log))

	followUps := saga.New(events, cfg.Saga.GroupID, certificate.DeriveFollowUp,
		func(ctx context.Context, cmd certificate.Command) error {
			_, err := service.Submit(ctx, cmd)
			return err
		},
		append(cfg.Saga.Options(), saga.WithSagaLogger(log))...,
	)

	supervisorOpts := append(cfg.Saga.SupervisorOptions(), saga.WithLogger(log))
	sagaSupervisor := saga.NewSupervisor("certificate-saga", followUps.Run, supervisorOpts...)
	listenSupervisor := saga.NewSupervisor("event-listener", events.Listen, supervisorOpts...)

	scheduler, err := renewal.NewFromConfig(cfg.Renewal, service, service, renewal.WithLogger(log))
	if err != nil {
		return err
	}

	probes.Register("saga", sagaSupervisor.Healthcheck)
	probes.Register("listener", listenSupervisor.Healthcheck)
	probes.Register("scheduler", scheduler.Healthcheck)

	if err := view.Sync(ctx); err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(probes.Run(ctx))
	eg.Go(listenSupervisor.Run(ctx))
	eg.Go(sagaSupervisor.Run(ctx))
	eg.Go(view.Run(ctx))
	eg.Go(scheduler.Run(ctx))

	log.Info("letsautomate started",
		slog.String("lock_backend", cfg.LockBackend),
		slog.String("acme_directory", cfg.ACME.DirectoryURL),
		logger.Count("domains", len(view.ListDomains())))

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func connectRedis(ctx context.Context) (*goredis.Client, error) {
	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return nil, err
	}
	return redis.Connect(ctx, redisCfg)
}

func newRedisLocker(client *goredis.Client, log *slog.Logger) (*redislock.Locker, error) {
	var lockCfg redislock.Config
	if err := config.Load(&lockCfg); err != nil {
		return nil, err
	}
	return redislock.NewFromConfig(lockCfg, client, redislock.WithLogger(log))
}

func newDNS(ctx context.Context, provider string, log *slog.Logger) (challenge.DNS, error) {
	if provider == dnsRoute53 {
		var r53Cfg route53.Config
		if err := config.Load(&r53Cfg); err != nil {
			return nil, err
		}
		return route53.New(ctx, r53Cfg, route53.WithLogger(log))
	}

	var nsCfg rfc2136.Config
	if err := config.Load(&nsCfg); err != nil {
		return nil, err
	}
	return rfc2136.NewFromConfig(nsCfg, rfc2136.WithLogger(log))
}
