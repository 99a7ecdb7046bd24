package challenge

import "time"

// Config holds the orchestrator settings read from the environment.
type Config struct {
	AccountID           string        `env:"ACME_ACCOUNT_ID" envDefault:"letsautomate"`
	PropagationInterval time.Duration `env:"CHALLENGE_PROPAGATION_INTERVAL" envDefault:"30s"`
	PropagationTimeout  time.Duration `env:"CHALLENGE_PROPAGATION_TIMEOUT" envDefault:"6h"`
	ChallengeInterval   time.Duration `env:"CHALLENGE_POLL_INTERVAL" envDefault:"1s"`
	ChallengeAttempts   int           `env:"CHALLENGE_POLL_ATTEMPTS" envDefault:"10"`
	FinalizeInterval    time.Duration `env:"CHALLENGE_FINALIZE_INTERVAL" envDefault:"3s"`
	FinalizeAttempts    int           `env:"CHALLENGE_FINALIZE_ATTEMPTS" envDefault:"10"`
	CleanupRetries      int           `env:"CHALLENGE_CLEANUP_RETRIES" envDefault:"3"`
	RecordTTL           int           `env:"CHALLENGE_RECORD_TTL" envDefault:"60"`
}

// NewFromConfig creates an Orchestrator from cfg. Extra options are applied last.
func NewFromConfig(cfg Config, acme ACME, accounts AccountStore, dns DNS, opts ...Option) *Orchestrator {
	base := []Option{
		WithAccountID(cfg.AccountID),
		WithPropagation(cfg.PropagationInterval, cfg.PropagationTimeout),
		WithChallengePolling(cfg.ChallengeInterval, cfg.ChallengeAttempts),
		WithFinalizePolling(cfg.FinalizeInterval, cfg.FinalizeAttempts),
		WithCleanup(cfg.CleanupRetries, 0, 0),
		WithRecordTTL(cfg.RecordTTL),
	}
	return New(acme, accounts, dns, append(base, opts...)...)
}
