package route53

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	r53 "github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/dmitrymomot/letsautomate/core/logger"
)

const (
	DefaultTTL         = 60
	DefaultSyncTimeout = 2 * time.Minute
)

type options struct {
	client        Client
	hostedZoneID  string
	ttl           int
	waitForSync   bool
	syncTimeout   time.Duration
	httpClient    *http.Client
	configOptions []func(*config.LoadOptions) error
	clientOptions []func(*r53.Options)
	log           *slog.Logger
}

// Option configures a Manager.
type Option func(*options)

// WithClient sets a pre-configured client.
func WithClient(c Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithHostedZoneID pins every domain to one hosted zone and skips the lookup.
func WithHostedZoneID(id string) Option {
	return func(o *options) {
		o.hostedZoneID = trimZoneID(id)
	}
}

// WithTTL sets the TTL of created records when the caller gives none.
func WithTTL(ttl int) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithWaitForSync makes CreateRecord block until the change is INSYNC.
func WithWaitForSync(timeout time.Duration) Option {
	return func(o *options) {
		o.waitForSync = true
		if timeout > 0 {
			o.syncTimeout = timeout
		}
	}
}

// WithHTTPClient sets the HTTP client used by the SDK.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithConfigOption adds an AWS config load option.
func WithConfigOption(opt func(*config.LoadOptions) error) Option {
	return func(o *options) {
		o.configOptions = append(o.configOptions, opt)
	}
}

// WithClientOption adds a Route 53 client option.
func WithClientOption(opt func(*r53.Options)) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, opt)
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
		ttl:         DefaultTTL,
		syncTimeout: DefaultSyncTimeout,
		log:         logger.Nop(),
	}
}

// Config holds the Route 53 settings.
type Config struct {
	Region       string        `env:"ROUTE53_REGION" envDefault:"us-east-1"`
	HostedZoneID string        `env:"ROUTE53_HOSTED_ZONE_ID"`
	AccessKeyID  string        `env:"ROUTE53_ACCESS_KEY_ID"`
	SecretKey    string        `env:"ROUTE53_SECRET_ACCESS_KEY"`
	Endpoint     string        `env:"ROUTE53_ENDPOINT"`
	TTL          int           `env:"ROUTE53_TTL" envDefault:"60"`
	WaitForSync  bool          `env:"ROUTE53_WAIT_FOR_SYNC" envDefault:"false"`
	SyncTimeout  time.Duration `env:"ROUTE53_SYNC_TIMEOUT" envDefault:"2m"`
}
