package renewal

import "time"

// Config holds scheduler settings read from the environment.
type Config struct {
	Interval        time.Duration `env:"RENEWAL_INTERVAL" envDefault:"1h"`
	RenewBefore     time.Duration `env:"RENEWAL_BEFORE" envDefault:"720h"`
	ShutdownTimeout time.Duration `env:"RENEWAL_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	Concurrency     int           `env:"RENEWAL_CONCURRENCY" envDefault:"4"`
}

// NewFromConfig creates a Scheduler from cfg. Extra options override it.
func NewFromConfig(cfg Config, state StateSource, submitter Submitter, opts ...Option) (*Scheduler, error) {
	all := append([]Option{
		WithInterval(cfg.Interval),
		WithRenewBefore(cfg.RenewBefore),
		WithShutdownTimeout(cfg.ShutdownTimeout),
		WithConcurrency(cfg.Concurrency),
	}, opts...)
	return New(state, submitter, all...)
}
