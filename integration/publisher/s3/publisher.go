package s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrymomot/letsautomate/core/certificate"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

const pemContentType = "application/x-pem-file"

var _ certificate.Publisher = (*Publisher)(nil)

// Client is the subset of the S3 API the publisher uses.
type Client interface {
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3aws.HeadBucketInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadBucketOutput, error)
}

// Option configures a Publisher.
type Option func(*options)

type options struct {
	client        Client
	httpClient    *http.Client
	configOptions []func(*config.LoadOptions) error
	clientOptions []func(*s3aws.Options)
	log           *slog.Logger
}

// WithClient sets a pre-configured client. Used by tests and for custom setups.
func WithClient(c Client) Option {
	return func(o *options) {
		o.client = c
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

// WithClientOption adds an S3 client option.
func WithClientOption(opt func(*s3aws.Options)) Option {
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

// Publisher writes certificate bundles to a bucket.
type Publisher struct {
	client        Client
	bucket        string
	prefix        string
	sse           string
	uploadTimeout time.Duration
	log           *slog.Logger
}

// New creates a Publisher. Without static credentials in cfg the default AWS
// credential chain (environment, shared config, instance role) is used.
func New(ctx context.Context, cfg Config, opts ...Option) (*Publisher, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	client := o.client
	if client == nil {
		loadOpts := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		if o.httpClient != nil {
			loadOpts = append(loadOpts, config.WithHTTPClient(o.httpClient))
		}
		loadOpts = append(loadOpts, o.configOptions...)

		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client = s3aws.NewFromConfig(awsCfg, func(so *s3aws.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
			for _, opt := range o.clientOptions {
				opt(so)
			}
		})
	}

	return &Publisher{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		sse:           cfg.ServerSideEncryption,
		uploadTimeout: cfg.UploadTimeout,
		log:           o.log,
	}, nil
}

type object struct {
	name    string
	body    string
	private bool
}

// Publish uploads the bundle's files. A failed upload aborts the rest; the
// next publish overwrites whatever was written.
func (p *Publisher) Publish(ctx context.Context, b certificate.Bundle) error {
	if b.Certificate.Certificate == "" || b.PrivateKey == "" {
		return ErrIncompleteBundle
	}
	if p.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.uploadTimeout)
		defer cancel()
	}

	leaf := pemBlock(b.Certificate.Certificate)
	chain := joinPEM(b.Certificate.Chain)
	objects := []object{
		{name: "cert.pem", body: leaf},
		{name: "fullchain.pem", body: leaf + chain},
		{name: "privkey.pem", body: pemBlock(b.PrivateKey), private: true},
	}
	if chain != "" {
		objects = append(objects, object{name: "chain.pem", body: chain})
	}

	dir := p.prefix + b.FQDN() + "/"
	meta := map[string]string{"expire": b.Certificate.Expire.UTC().Format(time.RFC3339)}
	for _, obj := range objects {
		input := &s3aws.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(dir + obj.name),
			Body:        bytes.NewReader([]byte(obj.body)),
			ContentType: aws.String(pemContentType),
			Metadata:    meta,
		}
		if obj.private && p.sse != "" {
			input.ServerSideEncryption = types.ServerSideEncryption(p.sse)
		}
		if _, err := p.client.PutObject(ctx, input); err != nil {
			return classifyError(err, "upload "+dir+obj.name)
		}
	}

	p.log.InfoContext(ctx, "certificate published",
		logger.Component("s3"),
		logger.Domain(b.FQDN()),
		slog.String("bucket", p.bucket),
		logger.Count("objects", len(objects)))
	return nil
}

// Healthcheck verifies the bucket is reachable with the configured credentials.
func (p *Publisher) Healthcheck(ctx context.Context) error {
	if _, err := p.client.HeadBucket(ctx, &s3aws.HeadBucketInput{Bucket: aws.String(p.bucket)}); err != nil {
		return fmt.Errorf("%w: %w", ErrHealthcheckFailed, classifyError(err, "head bucket"))
	}
	return nil
}

func joinPEM(blocks []string) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(pemBlock(b))
	}
	return sb.String()
}

func pemBlock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return s + "\n"
}
