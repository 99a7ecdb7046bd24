package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/letsautomate/core/aggregate"
	"github.com/dmitrymomot/letsautomate/core/eventlog"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

// DefaultPublishFailureRetries is how many extra times a publish failure event is appended.
const DefaultPublishFailureRetries = 3

// Orderer obtains a certificate from the CA.
type Orderer interface {
	OrderCertificate(ctx context.Context, domain, subdomain string, wildcard bool) (*Issued, error)
}

// OrdererFunc adapts a function to Orderer.
type OrdererFunc func(ctx context.Context, domain, subdomain string, wildcard bool) (*Issued, error)

func (f OrdererFunc) OrderCertificate(ctx context.Context, domain, subdomain string, wildcard bool) (*Issued, error) {
	return f(ctx, domain, subdomain, wildcard)
}

// Publisher pushes certificate material to the platform that serves it.
type Publisher interface {
	Publish(ctx context.Context, b Bundle) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, b Bundle) error

func (f PublisherFunc) Publish(ctx context.Context, b Bundle) error { return f(ctx, b) }

var _ aggregate.Aggregate[AllCertificates, Command, Event] = (*Aggregate)(nil)

// Aggregate implements the certificate state machine.
type Aggregate struct {
	orderer        Orderer
	publisher      Publisher
	now            func() time.Time
	publishRetries int
	logger         *slog.Logger
}

// AggregateOption configures an Aggregate.
type AggregateOption func(*Aggregate)

// WithClock overrides the clock stamped on CertificatePublished.
func WithClock(now func() time.Time) AggregateOption {
	return func(a *Aggregate) {
		if now != nil {
			a.now = now
		}
	}
}

// WithPublishFailureRetries sets the extra append attempts for publish failures.
func WithPublishFailureRetries(n int) AggregateOption {
	return func(a *Aggregate) {
		if n >= 0 {
			a.publishRetries = n
		}
	}
}

// WithAggregateLogger sets the logger.
func WithAggregateLogger(l *slog.Logger) AggregateOption {
	return func(a *Aggregate) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregate creates the certificate aggregate.
func NewAggregate(orderer Orderer, publisher Publisher, opts ...AggregateOption) *Aggregate {
	a := &Aggregate{
		orderer:        orderer,
		publisher:      publisher,
		now:            time.Now,
		publishRetries: DefaultPublishFailureRetries,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregate) InitialState() AllCertificates {
	return NewAllCertificates()
}

// Apply decodes and folds one stored event. Event types written by newer
// versions are skipped.
func (a *Aggregate) Apply(state AllCertificates, stored eventlog.StoredEvent) (AllCertificates, error) {
	ev, err := Decode(stored)
	if errors.Is(err, ErrUnknownEventType) {
		a.logger.Warn("skipping unknown event", logger.EventType(stored.Type), logger.Sequence(stored.Sequence))
		return state, nil
	}
	if err != nil {
		return state, err
	}
	return state.Apply(ev), nil
}

// Key serializes all commands for the same certificate.
func (a *Aggregate) Key(cmd Command) string {
	return cmd.Key().String()
}

func (a *Aggregate) Encode(ev Event) (eventlog.Record, error) {
	return Encode(ev)
}

func (a *Aggregate) Execute(ctx context.Context, state AllCertificates, cmd Command) (aggregate.Decision[Event], error) {
	var none aggregate.Decision[Event]
	k := cmd.Key()
	if err := validateDomain(k); err != nil {
		return none, err
	}

	switch c := cmd.(type) {
	case CreateCertificate:
		if err := requireAbsent(state, k); err != nil {
			return none, err
		}
		if err := validateSubdomain(k); err != nil {
			return none, err
		}
		return aggregate.Accept[Event](CertificateCreated{Domain: k.Domain, Subdomain: k.Subdomain, Wildcard: c.Wildcard}), nil

	case OrderCertificate:
		if err := a.requireOrderable(state, k); err != nil {
			return none, err
		}
		if s, _ := state.Get(k); s.Certificate != nil {
			return none, aggregate.Reject("Certificate for %s already ordered", k)
		}
		issued, err := a.order(ctx, k, c.Wildcard)
		if err != nil {
			return aggregate.Fail[Event](CertificateOrderFailure{Domain: k.Domain, Subdomain: k.Subdomain, Cause: err.Error()}, err), nil
		}
		return aggregate.Accept[Event](CertificateOrdered{
			Domain: k.Domain, Subdomain: k.Subdomain, Wildcard: c.Wildcard,
			PrivateKey: issued.PrivateKey, CSR: issued.CSR, Certificate: issued.Certificate,
		}), nil

	case StartRenewCertificate:
		if err := a.requireOrderable(state, k); err != nil {
			return none, err
		}
		return aggregate.Accept[Event](CertificateReOrderedStarted{Domain: k.Domain, Subdomain: k.Subdomain, Wildcard: c.Wildcard}), nil

	case RenewCertificate:
		if err := a.requireOrderable(state, k); err != nil {
			return none, err
		}
		if s, _ := state.Get(k); !s.RenewalInProgress {
			return none, aggregate.Reject("Renewal of %s was not started", k)
		}
		issued, err := a.order(ctx, k, c.Wildcard)
		if err != nil {
			return aggregate.Fail[Event](CertificateReOrderFailure{Domain: k.Domain, Subdomain: k.Subdomain, Cause: err.Error()}, err), nil
		}
		return aggregate.Accept[Event](CertificateReOrdered{
			Domain: k.Domain, Subdomain: k.Subdomain, Wildcard: c.Wildcard,
			PrivateKey: issued.PrivateKey, CSR: issued.CSR, Certificate: issued.Certificate,
		}), nil

	case PublishCertificate:
		s, err := requireExisting(state, k)
		if err != nil {
			return none, err
		}
		if !s.Publishable() {
			return none, aggregate.Reject("Domain %s should be created", k.Domain)
		}
		if err := a.publish(ctx, s); err != nil {
			ev := CertificatePublishFailure{Domain: k.Domain, Subdomain: k.Subdomain, Cause: err.Error()}
			return aggregate.Fail[Event](ev, err).WithRetries(a.publishRetries), nil
		}
		return aggregate.Accept[Event](CertificatePublished{Domain: k.Domain, Subdomain: k.Subdomain, DateTime: a.now().UTC()}), nil

	case DeleteCertificate:
		if _, err := requireExisting(state, k); err != nil {
			return none, err
		}
		return aggregate.Accept[Event](CertificateDeleted{Domain: k.Domain, Subdomain: k.Subdomain}), nil
	}

	return none, fmt.Errorf("%w: %T", ErrUnknownCommandType, cmd)
}

func (a *Aggregate) requireOrderable(state AllCertificates, k Key) error {
	if _, err := requireExisting(state, k); err != nil {
		return err
	}
	return validateSubdomain(k)
}

func (a *Aggregate) order(ctx context.Context, k Key, wildcard bool) (issued *Issued, err error) {
	if a.orderer == nil {
		return nil, ErrOrdererMissing
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("order %s: panic: %v", k, r)
		}
	}()

	issued, err = a.orderer.OrderCertificate(ctx, k.Domain, k.Subdomain, wildcard)
	if err != nil {
		return nil, err
	}
	if issued == nil {
		return nil, ErrEmptyOrder
	}
	return issued, nil
}

func (a *Aggregate) publish(ctx context.Context, s CertificateState) (err error) {
	if a.publisher == nil {
		return ErrPublisherMissing
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publish %s: panic: %v", s.Key(), r)
		}
	}()

	return a.publisher.Publish(ctx, Bundle{
		Domain:      s.Domain,
		Subdomain:   s.Subdomain,
		PrivateKey:  s.PrivateKey,
		CSR:         s.CSR,
		Certificate: *s.Certificate,
	})
}
