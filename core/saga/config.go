package saga

import "time"

// Config holds saga and supervisor settings read from the environment.
type Config struct {
	GroupID         string        `env:"SAGA_GROUP_ID" envDefault:"certificate-saga"`
	PollInterval    time.Duration `env:"SAGA_POLL_INTERVAL" envDefault:"1s"`
	InitialInterval time.Duration `env:"SAGA_RESTART_INITIAL_INTERVAL" envDefault:"1s"`
	MaxInterval     time.Duration `env:"SAGA_RESTART_MAX_INTERVAL" envDefault:"1m"`
	MaxRestarts     int           `env:"SAGA_MAX_RESTARTS" envDefault:"0"`
}

// SupervisorOptions converts cfg into supervisor options.
func (c Config) SupervisorOptions() []SupervisorOption {
	return []SupervisorOption{
		WithBackoff(c.InitialInterval, c.MaxInterval),
		WithMaxRestarts(c.MaxRestarts),
	}
}

// Options converts cfg into saga options.
func (c Config) Options() []Option {
	return []Option{WithPollInterval(c.PollInterval)}
}
