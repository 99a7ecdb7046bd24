package certificate_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/letsautomate/core/aggregate"
	"github.com/dmitrymomot/letsautomate/core/certificate"
	"github.com/dmitrymomot/letsautomate/core/eventlog"
)

type fixture struct {
	log       *eventlog.MemoryLog
	orderer   *fakeOrderer
	publisher *fakePublisher
	service   *certificate.Service
}

func newFixture(t *testing.T, logOpts ...eventlog.MemoryOption) *fixture {
	t.Helper()
	f := &fixture{
		log:       eventlog.NewMemoryLog(logOpts...),
		orderer:   &fakeOrderer{expire: testNow.AddDate(0, 0, 60)},
		publisher: &fakePublisher{},
	}
	agg := certificate.NewAggregate(f.orderer, f.publisher,
		certificate.WithClock(func() time.Time { return testNow }))
	f.service = certificate.NewService(f.log, agg, aggregate.WithRetryInterval(time.Millisecond))
	return f
}

func (f *fixture) state(t *testing.T, key certificate.Key) (certificate.CertificateState, bool) {
	t.Helper()
	state, err := f.service.CurrentState(context.Background())
	require.NoError(t, err)
	return state.Get(key)
}

func assertValidation(t *testing.T, err error, message string) {
	t.Helper()
	require.ErrorIs(t, err, aggregate.ErrValidation)
	var verr *aggregate.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, message, verr.Message)
}

func TestVikingScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	ev, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Wildcard: true})
	require.NoError(t, err)
	assert.Equal(t, certificate.CertificateCreated{Domain: "viking.com", Wildcard: true}, ev)

	ev, err = f.service.Submit(ctx, certificate.OrderCertificate{Domain: "viking.com", Wildcard: true})
	require.NoError(t, err)
	ordered, ok := ev.(certificate.CertificateOrdered)
	require.True(t, ok)
	assert.Equal(t, testNow.AddDate(0, 0, 60), ordered.Certificate.Expire)
	assert.Equal(t, []orderCall{{Domain: "viking.com", Wildcard: true}}, f.orderer.Calls())

	ev, err = f.service.Submit(ctx, certificate.PublishCertificate{Domain: "viking.com"})
	require.NoError(t, err)
	assert.Equal(t, certificate.CertificatePublished{Domain: "viking.com", DateTime: testNow}, ev)

	bundles := f.publisher.Bundles()
	require.Len(t, bundles, 1)
	assert.Equal(t, "viking.com", bundles[0].FQDN())
	assert.Equal(t, ordered.PrivateKey, bundles[0].PrivateKey)
	assert.Equal(t, ordered.Certificate, bundles[0].Certificate)
}

func TestLifecycleIncrementalMatchesReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	key := certificate.NewKey("viking.com", "www")

	steps := []certificate.Command{
		certificate.CreateCertificate{Domain: "viking.com", Subdomain: "www", Wildcard: false},
		certificate.OrderCertificate{Domain: "viking.com", Subdomain: "www"},
		certificate.StartRenewCertificate{Domain: "viking.com", Subdomain: "www"},
		certificate.RenewCertificate{Domain: "viking.com", Subdomain: "www"},
		certificate.PublishCertificate{Domain: "viking.com", Subdomain: "www"},
	}

	incremental := certificate.NewAllCertificates()
	for _, cmd := range steps {
		ev, err := f.service.Submit(ctx, cmd)
		require.NoError(t, err, cmd.CommandType())
		incremental = incremental.Apply(ev)

		replayed, ok := f.state(t, key)
		require.True(t, ok)
		fromIncrement, _ := incremental.Get(key)
		assert.Equal(t, fromIncrement, replayed, "after %s", cmd.CommandType())

		switch cmd.(type) {
		case certificate.StartRenewCertificate:
			assert.True(t, replayed.RenewalInProgress)
		case certificate.RenewCertificate:
			assert.False(t, replayed.RenewalInProgress)
			assert.NotNil(t, replayed.Certificate)
		case certificate.PublishCertificate:
			assert.NotNil(t, replayed.PublishedAt)
		}
	}
	assert.Equal(t, len(steps), f.log.Len())
}

func TestCommandsOnMissingKeyAreRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	for _, cmd := range []certificate.Command{
		certificate.OrderCertificate{Domain: "viking.com"},
		certificate.StartRenewCertificate{Domain: "viking.com"},
		certificate.RenewCertificate{Domain: "viking.com", Subdomain: "www"},
		certificate.PublishCertificate{Domain: "viking.com"},
		certificate.DeleteCertificate{Domain: "viking.com"},
	} {
		_, err := f.service.Submit(ctx, cmd)
		assertValidation(t, err, "Domain viking.com should be created")
	}
	assert.Zero(t, f.log.Len())
	assert.Empty(t, f.orderer.Calls())
}

func TestCreateRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Subdomain: " www "})
	assertValidation(t, err, "Subdomain already exist")

	_, err = f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Subdomain: "www.viking.com."})
	assertValidation(t, err, "Subdomain should end with viking.com")

	_, err = f.service.Submit(ctx, certificate.CreateCertificate{Domain: "  "})
	assertValidation(t, err, "Domain is required")

	// Multi-label subdomains without a trailing dot are fine.
	_, err = f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Subdomain: "api.eu"})
	require.NoError(t, err)

	assert.Equal(t, 2, f.log.Len())
}

func TestOrderFailureIsRecorded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.orderer.err = errors.New("DNS record not found after 6 hours")

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com"})
	require.NoError(t, err)

	ev, err := f.service.Submit(ctx, certificate.OrderCertificate{Domain: "viking.com"})
	require.ErrorIs(t, err, aggregate.ErrExternalService)
	assert.Equal(t, certificate.CertificateOrderFailure{Domain: "viking.com", Cause: "DNS record not found after 6 hours"}, ev)

	_, err = f.service.Submit(ctx, certificate.StartRenewCertificate{Domain: "viking.com"})
	require.NoError(t, err)
	ev, err = f.service.Submit(ctx, certificate.RenewCertificate{Domain: "viking.com"})
	require.ErrorIs(t, err, aggregate.ErrExternalService)
	assert.IsType(t, certificate.CertificateReOrderFailure{}, ev)

	events, err := f.log.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "CertificateOrderFailure", events[1].Type)
	assert.Equal(t, "CertificateReOrderFailure", events[3].Type)

	s, ok := f.state(t, certificate.NewKey("viking.com", ""))
	require.True(t, ok)
	assert.Nil(t, s.Certificate)
}

func TestOrdererPanicIsRecorded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.orderer.orderFn = func(context.Context, string, string, bool) (*certificate.Issued, error) {
		panic("nil account")
	}

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com"})
	require.NoError(t, err)

	ev, err := f.service.Submit(ctx, certificate.OrderCertificate{Domain: "viking.com"})
	require.ErrorIs(t, err, aggregate.ErrExternalService)
	failure, ok := ev.(certificate.CertificateOrderFailure)
	require.True(t, ok)
	assert.Contains(t, failure.Cause, "nil account")
}

func TestPublishRequiresCertificate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com"})
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, certificate.PublishCertificate{Domain: "viking.com"})
	assertValidation(t, err, "Domain viking.com should be created")
	assert.Empty(t, f.publisher.Bundles())
	assert.Equal(t, 1, f.log.Len())
}

func TestPublishFailureRetriesPersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var failures atomic.Int32
	failures.Store(3)
	f := newFixture(t, eventlog.WithAppendHook(func(rec eventlog.Record) error {
		if rec.Type == "CertificatePublishFailure" && failures.Add(-1) >= 0 {
			return errors.New("connection reset")
		}
		return nil
	}))
	f.publisher.err = errors.New("bucket not found")

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, certificate.OrderCertificate{Domain: "viking.com"})
	require.NoError(t, err)

	ev, err := f.service.Submit(ctx, certificate.PublishCertificate{Domain: "viking.com"})
	require.ErrorIs(t, err, aggregate.ErrExternalService)
	assert.Equal(t, certificate.CertificatePublishFailure{Domain: "viking.com", Cause: "bucket not found"}, ev)
	// The publish call itself is not retried.
	assert.Len(t, f.publisher.Bundles(), 1)
	assert.Equal(t, 3, f.log.Len())
}

func TestDeleteCertificate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, certificate.DeleteCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)

	_, ok := f.state(t, certificate.NewKey("viking.com", "www"))
	assert.False(t, ok)

	// The key can be created again once deleted.
	_, err = f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)
}

func TestRepeatedOrderIsRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, certificate.OrderCertificate{Domain: "viking.com"})
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, certificate.OrderCertificate{Domain: "viking.com"})
	assertValidation(t, err, "Certificate for viking.com already ordered")
	assert.Len(t, f.orderer.Calls(), 1)
	assert.Equal(t, 2, f.log.Len())
}

func TestRenewRequiresStartedRenewal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, certificate.OrderCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, certificate.RenewCertificate{Domain: "viking.com", Subdomain: "www"})
	assertValidation(t, err, "Renewal of www.viking.com was not started")

	_, err = f.service.Submit(ctx, certificate.StartRenewCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, certificate.RenewCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)

	// The same renewal delivered twice orders only once.
	_, err = f.service.Submit(ctx, certificate.RenewCertificate{Domain: "viking.com", Subdomain: "www"})
	assertValidation(t, err, "Renewal of www.viking.com was not started")
	assert.Len(t, f.orderer.Calls(), 2)
	assert.Equal(t, 4, f.log.Len())
}
