package certificate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/letsautomate/core/certificate"
)

func TestAllCertificatesApply(t *testing.T) {
	t.Parallel()
	key := certificate.NewKey("viking.com", "www")
	state := certificate.NewAllCertificates()

	state = state.Apply(certificate.CertificateCreated{Domain: "viking.com", Subdomain: "www", Wildcard: true})
	s, ok := state.Get(key)
	require.True(t, ok)
	require.NotNil(t, s.Wildcard)
	assert.True(t, *s.Wildcard)
	assert.False(t, s.Publishable())

	state = state.Apply(certificate.CertificateOrdered{Domain: "viking.com", Subdomain: "www", Wildcard: true, PrivateKey: "pk", CSR: "csr", Certificate: sampleCertificate()})
	s, _ = state.Get(key)
	assert.Equal(t, "pk", s.PrivateKey)
	require.NotNil(t, s.Certificate)
	assert.True(t, s.Publishable())

	state = state.Apply(certificate.CertificateOrderFailure{Domain: "viking.com", Subdomain: "www", Cause: "boom"})
	unchanged, _ := state.Get(key)
	assert.Equal(t, s, unchanged)

	state = state.Apply(certificate.CertificateReOrderedStarted{Domain: "viking.com", Subdomain: "www", Wildcard: true})
	s, _ = state.Get(key)
	assert.True(t, s.RenewalInProgress)

	renewed := sampleCertificate()
	renewed.Expire = renewed.Expire.AddDate(0, 3, 0)
	state = state.Apply(certificate.CertificateReOrdered{Domain: "viking.com", Subdomain: "www", Wildcard: true, PrivateKey: "pk2", CSR: "csr2", Certificate: renewed})
	s, _ = state.Get(key)
	assert.False(t, s.RenewalInProgress)
	assert.Equal(t, "pk2", s.PrivateKey)
	assert.Equal(t, renewed.Expire, s.Certificate.Expire)

	state = state.Apply(certificate.CertificatePublished{Domain: "viking.com", Subdomain: "www", DateTime: testNow})
	s, _ = state.Get(key)
	require.NotNil(t, s.PublishedAt)
	assert.Equal(t, testNow, *s.PublishedAt)

	state = state.Apply(certificate.CertificateDeleted{Domain: "viking.com", Subdomain: "www"})
	_, ok = state.Get(key)
	assert.False(t, ok)
	assert.Zero(t, state.Len())
}

func TestAllCertificatesIgnoresUpdatesForUnknownKeys(t *testing.T) {
	t.Parallel()
	state := certificate.NewAllCertificates().
		Apply(certificate.CertificatePublished{Domain: "ghost.com", DateTime: testNow}).
		Apply(certificate.CertificateOrdered{Domain: "ghost.com", Certificate: sampleCertificate()})

	assert.Zero(t, state.Len())
}

func TestAllCertificatesExpiringBefore(t *testing.T) {
	t.Parallel()
	state := certificate.NewAllCertificates()
	for i, sub := range []string{"a", "b", "c"} {
		state = state.Apply(certificate.CertificateCreated{Domain: "viking.com", Subdomain: sub})
		cert := sampleCertificate()
		cert.Expire = testNow.AddDate(0, 0, 10*(i+1))
		state = state.Apply(certificate.CertificateOrdered{Domain: "viking.com", Subdomain: sub, Certificate: cert})
	}
	state = state.Apply(certificate.CertificateCreated{Domain: "viking.com", Subdomain: "pending"})

	due := state.ExpiringBefore(testNow.AddDate(0, 0, 20))
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].Subdomain)

	list := state.List()
	require.Len(t, list, 4)
	assert.Equal(t, []string{"a", "b", "c", "pending"}, []string{list[0].Subdomain, list[1].Subdomain, list[2].Subdomain, list[3].Subdomain})
}
