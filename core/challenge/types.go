package challenge

import (
	"context"
	"crypto"
)

// Status of an ACME resource.
type Status string

const (
	StatusPending    Status = "pending"
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusValid      Status = "valid"
	StatusInvalid    Status = "invalid"
)

// Order is an ACME order.
type Order struct {
	URL            string
	Status         Status
	Identifiers    []string
	Authorizations []string
}

// Authorization proves control of one identifier.
type Authorization struct {
	URL        string
	Identifier string
	Wildcard   bool
	Status     Status
}

// Challenge is the DNS-01 challenge of an authorization. Digest is the value
// the TXT record must carry.
type Challenge struct {
	URL        string
	Identifier string
	Status     Status
	Digest     string
}

// ACME opens accounts on a CA.
type ACME interface {
	CreateAccount(ctx context.Context, key crypto.Signer) (Account, error)
}

// Account is an ACME account able to drive orders.
type Account interface {
	NewOrder(ctx context.Context, identifiers []string) (Order, error)
	Authorizations(ctx context.Context, order Order) ([]Authorization, error)
	DNS01Challenge(ctx context.Context, authz Authorization) (Challenge, error)
	TriggerChallenge(ctx context.Context, ch Challenge) (Challenge, error)
	ChallengeStatus(ctx context.Context, ch Challenge) (Status, error)
	Finalize(ctx context.Context, order Order, csr []byte) (Order, error)
	OrderStatus(ctx context.Context, order Order) (Order, error)
	// Certificate downloads the issued certificate as a PEM bundle, leaf first.
	Certificate(ctx context.Context, order Order) ([]byte, error)
}

// AccountStore keeps the account key so every order reuses one account.
type AccountStore interface {
	GetOrCreate(ctx context.Context, accountID string) (crypto.Signer, error)
}

// Record is a DNS record. Name is relative to the zone, e.g. "_acme-challenge.www".
type Record struct {
	ID    string
	Name  string
	Type  string
	Value string
	TTL   int
}

// Zone is a DNS zone with its records.
type Zone struct {
	Name    string
	Records []Record
}

// DNS manages records in the zones of root domains.
type DNS interface {
	GetDomain(ctx context.Context, domain string) (Zone, error)
	CreateRecord(ctx context.Context, domain string, r Record) (Record, error)
	DeleteRecord(ctx context.Context, domain, id string) error
	// ResolveTXT asks the authoritative servers for the TXT values at name.
	ResolveTXT(ctx context.Context, domain, name string) ([]string, error)
}
