package rfc2136

import (
	"log/slog"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/dmitrymomot/letsautomate/core/logger"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultNet     = "udp"
)

type options struct {
	net        string
	timeout    time.Duration
	resolvers  []string
	tsigKey    string
	tsigAlg    string
	tsigFudge  uint16
	tsigSecret string
	log        *slog.Logger
}

// Option configures a Manager.
type Option func(*options)

// WithNet selects "udp" or "tcp" for updates and queries. Zone transfers always use TCP.
func WithNet(network string) Option {
	return func(o *options) {
		if network != "" {
			o.net = network
		}
	}
}

// WithTimeout bounds each DNS exchange.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithResolvers sets the servers ResolveTXT asks. Defaults to the nameserver.
func WithResolvers(addrs ...string) Option {
	return func(o *options) {
		o.resolvers = nil
		for _, a := range addrs {
			if a = strings.TrimSpace(a); a != "" {
				o.resolvers = append(o.resolvers, withPort(a))
			}
		}
	}
}

// WithTSIG signs every message with the named key. secret is base64.
// An empty algorithm means hmac-sha256.
func WithTSIG(keyName, algorithm, secret string) Option {
	return func(o *options) {
		o.tsigKey = dns.Fqdn(keyName)
		o.tsigSecret = secret
		if algorithm != "" {
			o.tsigAlg = dns.Fqdn(algorithm)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func defaultOptions() options {
	return options{
		net:       DefaultNet,
		timeout:   DefaultTimeout,
		tsigAlg:   dns.HmacSHA256,
		tsigFudge: 300,
		log:       logger.Nop(),
	}
}

// Config holds the nameserver settings.
type Config struct {
	Nameserver    string        `env:"DNS_NAMESERVER,required"`
	Net           string        `env:"DNS_NET" envDefault:"udp"`
	Timeout       time.Duration `env:"DNS_TIMEOUT" envDefault:"10s"`
	Resolvers     []string      `env:"DNS_RESOLVERS" envSeparator:","`
	TSIGKey       string        `env:"DNS_TSIG_KEY"`
	TSIGAlgorithm string        `env:"DNS_TSIG_ALGORITHM" envDefault:"hmac-sha256."`
	TSIGSecret    string        `env:"DNS_TSIG_SECRET"`
}

// NewFromConfig creates a Manager from cfg. Explicit opts override cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	base := []Option{
		WithNet(cfg.Net),
		WithTimeout(cfg.Timeout),
	}
	if len(cfg.Resolvers) > 0 {
		base = append(base, WithResolvers(cfg.Resolvers...))
	}
	if cfg.TSIGKey != "" || cfg.TSIGSecret != "" {
		if cfg.TSIGKey == "" || cfg.TSIGSecret == "" {
			return nil, ErrIncompleteTSIG
		}
		base = append(base, WithTSIG(cfg.TSIGKey, cfg.TSIGAlgorithm, cfg.TSIGSecret))
	}
	return New(cfg.Nameserver, append(base, opts...)...)
}
