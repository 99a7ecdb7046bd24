package main

import (
	"github.com/dmitrymomot/letsautomate/core/challenge"
	"github.com/dmitrymomot/letsautomate/core/health"
	"github.com/dmitrymomot/letsautomate/core/logger"
	"github.com/dmitrymomot/letsautomate/core/renewal"
	"github.com/dmitrymomot/letsautomate/core/saga"
	"github.com/dmitrymomot/letsautomate/integration/acme/lego"
	"github.com/dmitrymomot/letsautomate/integration/database/pg"
	"github.com/dmitrymomot/letsautomate/integration/publisher/s3"
)

// Lock backends accepted by LOCK_BACKEND.
const (
	lockMemory = "memory"
	lockRedis  = "redis"
)

// DNS providers accepted by DNS_PROVIDER.
const (
	dnsRFC2136 = "rfc2136"
	dnsRoute53 = "route53"
)

type Config struct {
	LockBackend string `env:"LOCK_BACKEND" envDefault:"memory"`
	DNSProvider string `env:"DNS_PROVIDER" envDefault:"rfc2136"`

	Log       logger.Config
	DB        pg.Config
	ACME      lego.Config
	S3        s3.Config
	Challenge challenge.Config
	Renewal   renewal.Config
	Saga      saga.Config
	Health    health.Config
}
