package challenge_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/letsautomate/core/challenge"
	"github.com/dmitrymomot/letsautomate/pkg/certutil"
)

type accountStore struct {
	mu   sync.Mutex
	keys map[string]crypto.Signer
	err  error
}

func (s *accountStore) GetOrCreate(_ context.Context, id string) (crypto.Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.keys == nil {
		s.keys = make(map[string]crypto.Signer)
	}
	if key, ok := s.keys[id]; ok {
		return key, nil
	}
	key, err := certutil.NewAccountKey()
	if err != nil {
		return nil, err
	}
	s.keys[id] = key
	return key, nil
}

// fakeCA implements both ACME and Account.
type fakeCA struct {
	mu sync.Mutex

	authzs           []challenge.Authorization
	challengeStatus  []challenge.Status // returned by successive ChallengeStatus calls
	orderStatus      []challenge.Status // returned by successive OrderStatus calls
	finalizeStatus   challenge.Status
	bundle           []byte
	statusCalls      int
	orderStatusCalls int
	triggered        []string
	orders           [][]string
	csrs             [][]byte
	accountKeys      []crypto.Signer
}

func (c *fakeCA) CreateAccount(_ context.Context, key crypto.Signer) (challenge.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountKeys = append(c.accountKeys, key)
	return c, nil
}

func (c *fakeCA) NewOrder(_ context.Context, identifiers []string) (challenge.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = append(c.orders, identifiers)
	urls := make([]string, len(c.authzs))
	for i := range c.authzs {
		urls[i] = c.authzs[i].URL
	}
	return challenge.Order{URL: "https://ca/order/1", Status: challenge.StatusPending, Identifiers: identifiers, Authorizations: urls}, nil
}

func (c *fakeCA) Authorizations(context.Context, challenge.Order) ([]challenge.Authorization, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]challenge.Authorization(nil), c.authzs...), nil
}

func (c *fakeCA) DNS01Challenge(_ context.Context, authz challenge.Authorization) (challenge.Challenge, error) {
	return challenge.Challenge{
		URL:        authz.URL + "/dns-01",
		Identifier: authz.Identifier,
		Status:     authz.Status,
		Digest:     "digest-" + authz.URL,
	}, nil
}

func (c *fakeCA) TriggerChallenge(_ context.Context, ch challenge.Challenge) (challenge.Challenge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggered = append(c.triggered, ch.URL)
	ch.Status = challenge.StatusProcessing
	return ch, nil
}

func (c *fakeCA) ChallengeStatus(context.Context, challenge.Challenge) (challenge.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusCalls++
	return next(&c.challengeStatus, challenge.StatusValid), nil
}

func (c *fakeCA) Finalize(_ context.Context, order challenge.Order, csr []byte) (challenge.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.csrs = append(c.csrs, csr)
	order.Status = c.finalizeStatus
	if order.Status == "" {
		order.Status = challenge.StatusProcessing
	}
	return order, nil
}

func (c *fakeCA) OrderStatus(_ context.Context, order challenge.Order) (challenge.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderStatusCalls++
	order.Status = next(&c.orderStatus, challenge.StatusValid)
	return order, nil
}

func (c *fakeCA) Certificate(context.Context, challenge.Order) ([]byte, error) {
	return c.bundle, nil
}

func (c *fakeCA) counts() (statusCalls, orderStatusCalls int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusCalls, c.orderStatusCalls
}

func next(queue *[]challenge.Status, fallback challenge.Status) challenge.Status {
	if len(*queue) == 0 {
		return fallback
	}
	s := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return s
}

// fakeDNS is a single-zone provider. Records become resolvable after
// visibleAfter lookups.
type fakeDNS struct {
	mu           sync.Mutex
	records      []challenge.Record
	seq          int
	created      []challenge.Record
	deleteCalls  int
	deleteErrs   int
	resolveCalls int
	visibleAfter int
	hidden       bool
	deleteDelay  time.Duration
}

func (d *fakeDNS) GetDomain(_ context.Context, domain string) (challenge.Zone, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return challenge.Zone{Name: domain, Records: append([]challenge.Record(nil), d.records...)}, nil
}

func (d *fakeDNS) CreateRecord(_ context.Context, _ string, r challenge.Record) (challenge.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	r.ID = strconv.Itoa(d.seq)
	d.records = append(d.records, r)
	d.created = append(d.created, r)
	return r, nil
}

func (d *fakeDNS) DeleteRecord(_ context.Context, _ string, id string) error {
	time.Sleep(d.deleteDelay)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleteCalls++
	if d.deleteErrs > 0 {
		d.deleteErrs--
		return errors.New("SERVFAIL")
	}
	for i, r := range d.records {
		if r.ID == id {
			d.records = append(d.records[:i], d.records[i+1:]...)
			break
		}
	}
	return nil
}

func (d *fakeDNS) ResolveTXT(_ context.Context, _ string, name string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolveCalls++
	if d.hidden || d.resolveCalls <= d.visibleAfter {
		return nil, nil
	}
	var values []string
	for _, r := range d.records {
		if r.Name == name && r.Type == "TXT" {
			values = append(values, r.Value)
		}
	}
	return values, nil
}

func (d *fakeDNS) snapshot() (records, created []challenge.Record, deleteCalls int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]challenge.Record(nil), d.records...), append([]challenge.Record(nil), d.created...), d.deleteCalls
}

func testBundle(t *testing.T, cn string, notAfter time.Time) []byte {
	t.Helper()
	issuerKey, err := certutil.NewAccountKey()
	require.NoError(t, err)
	leafKey, err := certutil.NewAccountKey()
	require.NoError(t, err)

	issuer := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Fake Issuer"},
		NotBefore:             notAfter.AddDate(-1, 0, 0),
		NotAfter:              notAfter.AddDate(1, 0, 0),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	issuerDER, err := x509.CreateCertificate(rand.Reader, issuer, issuer, issuerKey.Public(), issuerKey)
	require.NoError(t, err)

	leaf := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: cn},
		DNSNames:     []string{cn},
		NotBefore:    notAfter.AddDate(0, -3, 0),
		NotAfter:     notAfter,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leaf, issuer, leafKey.Public(), issuerKey)
	require.NoError(t, err)

	out := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leafDER})
	return append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: issuerDER})...)
}
