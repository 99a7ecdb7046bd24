package certificate

import (
	"cmp"
	"slices"
	"time"
)

// CertificateState is the folded state of one certificate.
type CertificateState struct {
	Domain            string       `json:"domain"`
	Subdomain         string       `json:"subdomain,omitempty"`
	Wildcard          *bool        `json:"wildcard,omitempty"`
	RenewalInProgress bool         `json:"renewalInProgress"`
	PrivateKey        string       `json:"-"`
	CSR               string       `json:"csr,omitempty"`
	Certificate       *Certificate `json:"certificate,omitempty"`
	PublishedAt       *time.Time   `json:"publishedAt,omitempty"`
}

// Key of the certificate.
func (s CertificateState) Key() Key {
	return Key{Domain: s.Domain, Subdomain: s.Subdomain}
}

// Publishable reports whether all material needed by a Publisher is present.
func (s CertificateState) Publishable() bool {
	return s.Domain != "" && s.Wildcard != nil && s.PrivateKey != "" && s.CSR != "" && s.Certificate != nil
}

// AllCertificates is the state of every certificate, keyed by Key.
type AllCertificates struct {
	entries map[Key]CertificateState
}

// NewAllCertificates returns an empty state.
func NewAllCertificates() AllCertificates {
	return AllCertificates{entries: make(map[Key]CertificateState)}
}

// Get returns the state for k.
func (a AllCertificates) Get(k Key) (CertificateState, bool) {
	s, ok := a.entries[k]
	return s, ok
}

// Len returns the number of certificates.
func (a AllCertificates) Len() int {
	return len(a.entries)
}

// List returns every certificate ordered by domain then subdomain.
func (a AllCertificates) List() []CertificateState {
	out := make([]CertificateState, 0, len(a.entries))
	for _, s := range a.entries {
		out = append(out, s)
	}
	slices.SortFunc(out, func(x, y CertificateState) int {
		return cmp.Or(cmp.Compare(x.Domain, y.Domain), cmp.Compare(x.Subdomain, y.Subdomain))
	})
	return out
}

// ExpiringBefore returns certificates whose expiry is strictly before t.
func (a AllCertificates) ExpiringBefore(t time.Time) []CertificateState {
	var out []CertificateState
	for _, s := range a.List() {
		if s.Certificate != nil && s.Certificate.Expire.Before(t) {
			out = append(out, s)
		}
	}
	return out
}

// Apply folds ev into the state. Creation adds a key, deletion removes it and
// failures change nothing. Other events only touch existing keys.
func (a AllCertificates) Apply(ev Event) AllCertificates {
	if a.entries == nil {
		a.entries = make(map[Key]CertificateState)
	}
	k := ev.Key()

	switch e := ev.(type) {
	case CertificateCreated:
		s := a.entries[k]
		s.Domain, s.Subdomain, s.Wildcard = k.Domain, k.Subdomain, boolPtr(e.Wildcard)
		a.entries[k] = s
	case CertificateOrdered:
		a.update(k, func(s *CertificateState) {
			s.Wildcard = boolPtr(e.Wildcard)
			s.PrivateKey, s.CSR = e.PrivateKey, e.CSR
			s.Certificate = cloneCertificate(e.Certificate)
		})
	case CertificateReOrderedStarted:
		a.update(k, func(s *CertificateState) {
			s.Wildcard = boolPtr(e.Wildcard)
			s.RenewalInProgress = true
		})
	case CertificateReOrdered:
		a.update(k, func(s *CertificateState) {
			s.Wildcard = boolPtr(e.Wildcard)
			s.RenewalInProgress = false
			s.PrivateKey, s.CSR = e.PrivateKey, e.CSR
			s.Certificate = cloneCertificate(e.Certificate)
		})
	case CertificatePublished:
		a.update(k, func(s *CertificateState) {
			at := e.DateTime
			s.PublishedAt = &at
		})
	case CertificateDeleted:
		delete(a.entries, k)
	}
	return a
}

func (a AllCertificates) update(k Key, fn func(*CertificateState)) {
	s, ok := a.entries[k]
	if !ok {
		return
	}
	fn(&s)
	a.entries[k] = s
}

func boolPtr(b bool) *bool { return &b }

func cloneCertificate(c Certificate) *Certificate {
	c.Chain = slices.Clone(c.Chain)
	return &c
}
