package certificate

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

// CertificateError is the last failure recorded for a certificate.
type CertificateError struct {
	Type  string `json:"type"`
	Cause string `json:"cause"`
}

// CertificateSummary is the read-side view of one certificate.
type CertificateSummary struct {
	Subdomain   string            `json:"subdomain,omitempty"`
	Wildcard    bool              `json:"wildcard"`
	Expire      *time.Time        `json:"expire,omitempty"`
	PublishedAt *time.Time        `json:"publishDate,omitempty"`
	Error       *CertificateError `json:"error,omitempty"`
}

// DomainSummary groups the certificates of one root domain.
type DomainSummary struct {
	Domain       string               `json:"domain"`
	Certificates []CertificateSummary `json:"certificates"`
}

// OnError reports whether any certificate of the domain carries an error.
func (d DomainSummary) OnError() bool {
	return slices.ContainsFunc(d.Certificates, func(c CertificateSummary) bool { return c.Error != nil })
}

type domainEntry struct {
	mu    sync.RWMutex
	certs map[string]CertificateSummary
}

// DomainView keeps a per-domain summary current by following the log.
// Each domain is guarded by its own lock; a single goroutine applies events.
type DomainView struct {
	log          eventlog.Log
	logger       *slog.Logger
	pollInterval time.Duration

	domains  sync.Map // root domain -> *domainEntry
	position atomic.Int64
	applyMu  sync.Mutex
}

// ViewOption configures a DomainView.
type ViewOption func(*DomainView)

// WithViewLogger sets the logger.
func WithViewLogger(l *slog.Logger) ViewOption {
	return func(v *DomainView) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithViewPollInterval sets how often the view re-reads storage when idle.
func WithViewPollInterval(d time.Duration) ViewOption {
	return func(v *DomainView) {
		if d > 0 {
			v.pollInterval = d
		}
	}
}

// NewDomainView creates an empty view. Call Sync or Run to populate it.
func NewDomainView(log eventlog.Log, opts ...ViewOption) *DomainView {
	v := &DomainView{
		log:          log,
		logger:       logger.Nop(),
		pollInterval: eventlog.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Position is the sequence of the last applied event.
func (v *DomainView) Position() int64 {
	return v.position.Load()
}

// Sync applies every event appended since the last applied one.
func (v *DomainView) Sync(ctx context.Context) error {
	events, err := v.log.LoadSince(ctx, v.Position())
	if err != nil {
		return err
	}
	for _, st := range events {
		v.apply(st)
	}
	return nil
}

// Start follows the log until ctx is done. It returns nil on cancellation.
func (v *DomainView) Start(ctx context.Context) error {
	feed := eventlog.Follow(ctx, v.log, v.Position(), eventlog.WithPollInterval(v.pollInterval))
	for st := range feed.Events() {
		v.apply(st)
	}
	return feed.Err()
}

// Run returns a function suitable for errgroup.Go.
func (v *DomainView) Run(ctx context.Context) func() error {
	return func() error {
		err := v.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// ListDomains returns every domain ordered by name.
func (v *DomainView) ListDomains() []DomainSummary {
	var out []DomainSummary
	v.domains.Range(func(key, value any) bool {
		out = append(out, value.(*domainEntry).summary(key.(string)))
		return true
	})
	slices.SortFunc(out, func(a, b DomainSummary) int { return cmp.Compare(a.Domain, b.Domain) })
	return out
}

// Domain returns the summary of one root domain.
func (v *DomainView) Domain(name string) (DomainSummary, bool) {
	value, ok := v.domains.Load(name)
	if !ok {
		return DomainSummary{}, false
	}
	return value.(*domainEntry).summary(name), true
}

func (v *DomainView) apply(st eventlog.StoredEvent) {
	v.applyMu.Lock()
	defer v.applyMu.Unlock()

	if st.Sequence <= v.position.Load() {
		return
	}
	defer v.position.Store(st.Sequence)

	ev, err := Decode(st)
	if err != nil {
		v.logger.Warn("domain view skipped event", logger.Sequence(st.Sequence), logger.Error(err))
		return
	}
	k := ev.Key()

	if _, ok := ev.(CertificateDeleted); ok {
		if value, ok := v.domains.Load(k.Domain); ok {
			entry := value.(*domainEntry)
			entry.mu.Lock()
			delete(entry.certs, k.Subdomain)
			entry.mu.Unlock()
		}
		return
	}

	value, _ := v.domains.LoadOrStore(k.Domain, &domainEntry{certs: make(map[string]CertificateSummary)})
	entry := value.(*domainEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	c, ok := entry.certs[k.Subdomain]
	if !ok {
		c = CertificateSummary{Subdomain: k.Subdomain}
	}

	switch e := ev.(type) {
	case CertificateCreated:
		c.Wildcard = e.Wildcard
	case CertificateOrdered:
		expire := e.Certificate.Expire
		c.Expire, c.Error = &expire, nil
	case CertificateReOrdered:
		expire := e.Certificate.Expire
		c.Expire, c.Error = &expire, nil
	case CertificatePublished:
		at := e.DateTime
		c.PublishedAt, c.Error = &at, nil
	case Failure:
		c.Error = &CertificateError{Type: e.EventType(), Cause: e.FailureCause()}
	case CertificateReOrderedStarted:
		return
	}
	entry.certs[k.Subdomain] = c
}

func (e *domainEntry) summary(domain string) DomainSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	certs := make([]CertificateSummary, 0, len(e.certs))
	for _, c := range e.certs {
		certs = append(certs, c)
	}
	slices.SortFunc(certs, func(a, b CertificateSummary) int { return cmp.Compare(a.Subdomain, b.Subdomain) })
	return DomainSummary{Domain: domain, Certificates: certs}
}
