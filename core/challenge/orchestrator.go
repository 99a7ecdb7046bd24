package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/letsautomate/core/certificate"
	"github.com/dmitrymomot/letsautomate/core/logger"
	"github.com/dmitrymomot/letsautomate/pkg/async"
	"github.com/dmitrymomot/letsautomate/pkg/certutil"
)

const recordType = "TXT"

var _ certificate.Orderer = (*Orchestrator)(nil)

// Orchestrator orders certificates through DNS-01 challenges.
type Orchestrator struct {
	acme     ACME
	accounts AccountStore
	dns      DNS

	accountID           string
	propagationInterval time.Duration
	propagationTimeout  time.Duration
	challengeInterval   time.Duration
	challengeAttempts   int
	finalizeInterval    time.Duration
	finalizeAttempts    int
	cleanupRetries      int
	cleanupInterval     time.Duration
	cleanupTimeout      time.Duration
	recordTTL           int

	logger    *slog.Logger
	cleanups  async.Tracker
	cleanupMu sync.Mutex
	inflight  map[cleanupTarget]*async.ExecFuture
}

// New creates an Orchestrator.
func New(acme ACME, accounts AccountStore, dns DNS, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		acme:                acme,
		accounts:            accounts,
		dns:                 dns,
		accountID:           DefaultAccountID,
		propagationInterval: DefaultPropagationInterval,
		propagationTimeout:  DefaultPropagationTimeout,
		challengeInterval:   DefaultChallengeInterval,
		challengeAttempts:   DefaultChallengeAttempts,
		finalizeInterval:    DefaultFinalizeInterval,
		finalizeAttempts:    DefaultFinalizeAttempts,
		cleanupRetries:      DefaultCleanupRetries,
		cleanupInterval:     DefaultCleanupInterval,
		cleanupTimeout:      DefaultCleanupTimeout,
		recordTTL:           DefaultRecordTTL,
		logger:              logger.Nop(),
		inflight:            make(map[cleanupTarget]*async.ExecFuture),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OrderCertificate obtains a certificate for subdomain.domain, or domain when
// subdomain is empty. With wildcard the certificate also covers *.fqdn.
func (o *Orchestrator) OrderCertificate(ctx context.Context, domain, subdomain string, wildcard bool) (_ *certificate.Issued, err error) {
	if o.acme == nil || o.accounts == nil || o.dns == nil {
		return nil, ErrMissingDependency
	}

	key := certificate.NewKey(domain, subdomain)
	fqdn := key.FQDN()
	names := certutil.Names(fqdn, wildcard)
	label := challengeLabel(key.Subdomain)
	log := o.logger.With(logger.Domain(fqdn))
	start := time.Now()

	var created []string
	defer func() {
		if len(created) == 0 {
			return
		}
		retries := o.cleanupRetries
		if err != nil {
			retries = 0
		}
		o.scheduleCleanup(ctx, key.Domain, label, created, retries)
	}()

	accountKey, err := o.accounts.GetOrCreate(ctx, o.accountID)
	if err != nil {
		return nil, fmt.Errorf("load account key: %w", err)
	}
	account, err := o.acme.CreateAccount(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create acme account: %w", err)
	}

	log.InfoContext(ctx, "ordering certificate", slog.Any("names", names))
	order, err := account.NewOrder(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	challenges, err := o.pendingChallenges(ctx, account, order)
	if err != nil {
		return nil, err
	}

	if len(challenges) > 0 {
		digests := make([]string, 0, len(challenges))
		for _, ch := range challenges {
			digests = append(digests, ch.Digest)
		}

		if err := o.awaitCleanup(ctx, key.Domain, label); err != nil {
			return nil, err
		}
		created, err = o.publishRecords(ctx, key.Domain, label, digests)
		if err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "waiting for dns propagation", slog.String("record", label))
		if err := o.waitPropagation(ctx, key.Domain, label, digests); err != nil {
			return nil, err
		}
		for _, ch := range challenges {
			if err := o.validate(ctx, account, ch); err != nil {
				return nil, err
			}
		}
	}

	certKey, err := certutil.NewCertificateKey()
	if err != nil {
		return nil, err
	}
	csrDER, csrPEM, err := certutil.NewCSR(certKey, names)
	if err != nil {
		return nil, err
	}
	privateKey, err := certutil.EncodePrivateKey(certKey)
	if err != nil {
		return nil, err
	}

	order, err = o.finalize(ctx, account, order, csrDER, names)
	if err != nil {
		return nil, err
	}

	bundle, err := account.Certificate(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("download certificate: %w", err)
	}
	leaf, chain, expire, err := certutil.SplitBundle(bundle)
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "certificate issued", slog.Time("expire", expire), logger.Elapsed(start))
	return &certificate.Issued{
		PrivateKey: privateKey,
		CSR:        csrPEM,
		Certificate: certificate.Certificate{
			Certificate: leaf,
			Expire:      expire,
			Chain:       chain,
		},
	}, nil
}

// Wait blocks until background record cleanups have finished.
func (o *Orchestrator) Wait() error {
	return o.cleanups.Wait()
}

// PendingCleanups returns the number of record cleanups still running.
func (o *Orchestrator) PendingCleanups() int {
	return o.cleanups.Pending()
}

func (o *Orchestrator) pendingChallenges(ctx context.Context, account Account, order Order) ([]Challenge, error) {
	authzs, err := account.Authorizations(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load authorizations: %w", err)
	}

	var out []Challenge
	for _, authz := range authzs {
		if authz.Status == StatusValid {
			continue
		}
		ch, err := account.DNS01Challenge(ctx, authz)
		if err != nil {
			return nil, fmt.Errorf("dns-01 challenge for %s: %w", authz.Identifier, err)
		}
		if ch.Status == StatusValid {
			continue
		}
		out = append(out, ch)
	}
	return out, nil
}

// publishRecords creates one TXT record per digest at label under the root
// domain, skipping digests that are already published. It returns the IDs of
// the records it created, also when it fails part way.
func (o *Orchestrator) publishRecords(ctx context.Context, domain, label string, digests []string) ([]string, error) {
	zone, err := o.dns.GetDomain(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("load zone %s: %w", domain, err)
	}

	var created []string
	for _, digest := range digests {
		exists := slices.ContainsFunc(zone.Records, func(r Record) bool {
			return r.Name == label && r.Type == recordType && r.Value == digest
		})
		if exists {
			o.logger.DebugContext(ctx, "challenge record already present", slog.String("record", label))
			continue
		}
		rec, err := o.dns.CreateRecord(ctx, domain, Record{Name: label, Type: recordType, Value: digest, TTL: o.recordTTL})
		if err != nil {
			return created, fmt.Errorf("create record %s in %s: %w", label, domain, err)
		}
		created = append(created, rec.ID)
		zone.Records = append(zone.Records, rec)
	}
	return created, nil
}

func (o *Orchestrator) waitPropagation(ctx context.Context, domain, label string, digests []string) error {
	missing := slices.Clone(digests)
	attempts := max(int(o.propagationTimeout/o.propagationInterval), 1)

	ok, err := poll(ctx, o.propagationInterval, attempts, func(ctx context.Context) (bool, error) {
		values, err := o.dns.ResolveTXT(ctx, domain, label)
		if err != nil {
			o.logger.DebugContext(ctx, "dns check failed", slog.String("record", label), logger.Error(err))
			return false, nil
		}
		missing = slices.DeleteFunc(missing, func(d string) bool { return slices.Contains(values, d) })
		return len(missing) == 0, nil
	})
	if err != nil {
		return fmt.Errorf("wait for dns propagation: %w", err)
	}
	if !ok {
		return notPropagated(o.propagationTimeout)
	}
	return nil
}

func (o *Orchestrator) validate(ctx context.Context, account Account, ch Challenge) error {
	if ch.Status == StatusValid {
		return nil
	}
	triggered, err := account.TriggerChallenge(ctx, ch)
	if err != nil {
		return fmt.Errorf("trigger challenge for %s: %w", ch.Identifier, err)
	}
	if triggered.Status == StatusValid {
		return nil
	}

	ok, err := poll(ctx, o.challengeInterval, o.challengeAttempts, func(ctx context.Context) (bool, error) {
		status, err := account.ChallengeStatus(ctx, ch)
		if err != nil {
			return false, fmt.Errorf("challenge status for %s: %w", ch.Identifier, err)
		}
		if status == StatusInvalid {
			return false, fmt.Errorf("%w: %s", ErrChallengeInvalid, ch.Identifier)
		}
		return status == StatusValid, nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return challengeNotAccepted(ch.Identifier)
	}
	o.logger.InfoContext(ctx, "challenge accepted", logger.Domain(ch.Identifier))
	return nil
}

func (o *Orchestrator) finalize(ctx context.Context, account Account, order Order, csr []byte, names []string) (Order, error) {
	finalized, err := account.Finalize(ctx, order, csr)
	if err != nil {
		return order, fmt.Errorf("finalize order: %w", err)
	}
	if finalized.Status == StatusValid {
		return finalized, nil
	}

	ok, err := poll(ctx, o.finalizeInterval, o.finalizeAttempts, func(ctx context.Context) (bool, error) {
		current, err := account.OrderStatus(ctx, finalized)
		if err != nil {
			return false, fmt.Errorf("order status: %w", err)
		}
		finalized = current
		if current.Status == StatusInvalid {
			return false, fmt.Errorf("%w: %v", ErrOrderInvalid, names)
		}
		return current.Status == StatusValid, nil
	})
	if err != nil {
		return finalized, err
	}
	if !ok {
		return finalized, certificateNotAccepted(names)
	}
	return finalized, nil
}

// challengeLabel is the record name, relative to the root domain, that
// carries the DNS-01 digest for subdomain.
func challengeLabel(subdomain string) string {
	if subdomain == "" {
		return "_acme-challenge"
	}
	return "_acme-challenge." + subdomain
}

// poll runs check every interval, at most attempts times, until it reports
// done. It returns false without error when the attempts run out.
func poll(ctx context.Context, interval time.Duration, attempts int, check func(context.Context) (bool, error)) (bool, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range attempts {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}

		done, err := check(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
	return false, nil
}
