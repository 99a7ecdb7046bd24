package health

import "time"

// Config holds probe server configuration.
type Config struct {
	Addr            string        `env:"HEALTH_ADDR" envDefault:":8081"`
	CheckTimeout    time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"HEALTH_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// NewFromConfig creates a Server from configuration.
func NewFromConfig(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddress
	}

	configOpts := make([]Option, 0, 2+len(opts))
	if cfg.CheckTimeout > 0 {
		configOpts = append(configOpts, WithCheckTimeout(cfg.CheckTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	configOpts = append(configOpts, opts...)

	return New(cfg.Addr, configOpts...), nil
}
