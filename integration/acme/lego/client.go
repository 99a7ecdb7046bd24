package lego

import (
	"context"
	"crypto"
	"fmt"

	"github.com/go-acme/lego/v4/acme"
	"github.com/go-acme/lego/v4/acme/api"
	legochallenge "github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
	golego "github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/dmitrymomot/letsautomate/core/challenge"
)

var (
	_ challenge.ACME    = (*Client)(nil)
	_ challenge.Account = (*Account)(nil)
)

// Client opens ACME accounts on one CA directory.
type Client struct {
	opts options
}

// New creates a Client.
func New(opts ...Option) *Client {
	o := options{
		directoryURL: LetsEncryptProduction,
		userAgent:    defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{opts: o}
}

// CreateAccount registers key with the CA, agreeing to its terms. Registering
// a key the CA already knows returns the existing account.
func (c *Client) CreateAccount(ctx context.Context, key crypto.Signer) (challenge.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user := &accountUser{email: c.opts.email, key: key}
	cfg := golego.NewConfig(user)
	cfg.CADirURL = c.opts.directoryURL
	cfg.UserAgent = c.opts.userAgent
	if c.opts.httpClient != nil {
		cfg.HTTPClient = c.opts.httpClient
	}

	core, err := api.New(cfg.HTTPClient, cfg.UserAgent, cfg.CADirURL, "", key)
	if err != nil {
		return nil, fmt.Errorf("connect to acme directory: %w", err)
	}

	req := acme.Account{TermsOfServiceAgreed: true}
	if user.email != "" {
		req.Contact = []string{"mailto:" + user.email}
	}
	account, err := core.Accounts.New(req)
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	user.registration = &registration.Resource{URI: account.Location, Body: account.Account}

	return &Account{core: core, user: user}, nil
}

// Account is a registered ACME account.
type Account struct {
	core *api.Core
	user *accountUser
}

// URI is the account URL assigned by the CA.
func (a *Account) URI() string {
	return a.user.GetRegistration().URI
}

func (a *Account) NewOrder(ctx context.Context, identifiers []string) (challenge.Order, error) {
	if err := ctx.Err(); err != nil {
		return challenge.Order{}, err
	}
	order, err := a.core.Orders.New(identifiers)
	if err != nil {
		return challenge.Order{}, fmt.Errorf("create order: %w", err)
	}
	return toOrder(order.Location, order.Order), nil
}

func (a *Account) Authorizations(ctx context.Context, order challenge.Order) ([]challenge.Authorization, error) {
	out := make([]challenge.Authorization, 0, len(order.Authorizations))
	for _, url := range order.Authorizations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		authz, err := a.core.Authorizations.Get(url)
		if err != nil {
			return nil, fmt.Errorf("get authorization: %w", err)
		}
		out = append(out, challenge.Authorization{
			URL:        url,
			Identifier: authz.Identifier.Value,
			Wildcard:   authz.Wildcard,
			Status:     challenge.Status(authz.Status),
		})
	}
	return out, nil
}

func (a *Account) DNS01Challenge(ctx context.Context, authz challenge.Authorization) (challenge.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return challenge.Challenge{}, err
	}
	full, err := a.core.Authorizations.Get(authz.URL)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("get authorization: %w", err)
	}

	for _, ch := range full.Challenges {
		if ch.Type != string(legochallenge.DNS01) {
			continue
		}
		keyAuth, err := a.core.GetKeyAuthorization(ch.Token)
		if err != nil {
			return challenge.Challenge{}, fmt.Errorf("key authorization: %w", err)
		}
		return challenge.Challenge{
			URL:        ch.URL,
			Identifier: full.Identifier.Value,
			Status:     challenge.Status(ch.Status),
			Digest:     dns01.GetChallengeInfo(full.Identifier.Value, keyAuth).Value,
		}, nil
	}
	return challenge.Challenge{}, challenge.ErrNoDNS01Challenge
}

func (a *Account) TriggerChallenge(ctx context.Context, ch challenge.Challenge) (challenge.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return challenge.Challenge{}, err
	}
	updated, err := a.core.Challenges.New(ch.URL)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("trigger challenge: %w", err)
	}
	ch.Status = challenge.Status(updated.Status)
	return ch, nil
}

func (a *Account) ChallengeStatus(ctx context.Context, ch challenge.Challenge) (challenge.Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	current, err := a.core.Challenges.Get(ch.URL)
	if err != nil {
		return "", fmt.Errorf("get challenge: %w", err)
	}
	return challenge.Status(current.Status), nil
}

// Finalize submits the DER-encoded csr for order.
func (a *Account) Finalize(ctx context.Context, order challenge.Order, csr []byte) (challenge.Order, error) {
	current, err := a.getOrder(ctx, order.URL)
	if err != nil {
		return challenge.Order{}, err
	}
	if current.Finalize == "" {
		return challenge.Order{}, ErrNoFinalizeURL
	}
	finalized, err := a.core.Orders.UpdateForCSR(current.Finalize, csr)
	if err != nil {
		return challenge.Order{}, fmt.Errorf("finalize order: %w", err)
	}
	return toOrder(order.URL, finalized.Order), nil
}

func (a *Account) OrderStatus(ctx context.Context, order challenge.Order) (challenge.Order, error) {
	current, err := a.getOrder(ctx, order.URL)
	if err != nil {
		return challenge.Order{}, err
	}
	return toOrder(order.URL, current), nil
}

// Certificate downloads the issued chain, leaf first.
func (a *Account) Certificate(ctx context.Context, order challenge.Order) ([]byte, error) {
	current, err := a.getOrder(ctx, order.URL)
	if err != nil {
		return nil, err
	}
	if current.Certificate == "" {
		return nil, ErrNoCertificateURL
	}
	bundle, _, err := a.core.Certificates.Get(current.Certificate, true)
	if err != nil {
		return nil, fmt.Errorf("download certificate: %w", err)
	}
	return bundle, nil
}

func (a *Account) getOrder(ctx context.Context, url string) (acme.Order, error) {
	if err := ctx.Err(); err != nil {
		return acme.Order{}, err
	}
	order, err := a.core.Orders.Get(url)
	if err != nil {
		return acme.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order.Order, nil
}

func toOrder(url string, o acme.Order) challenge.Order {
	ids := make([]string, 0, len(o.Identifiers))
	for _, id := range o.Identifiers {
		ids = append(ids, id.Value)
	}
	return challenge.Order{
		URL:            url,
		Status:         challenge.Status(o.Status),
		Identifiers:    ids,
		Authorizations: o.Authorizations,
	}
}

// accountUser satisfies registration.User for lego.NewConfig.
type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string {
	return u.email
}

func (u *accountUser) GetRegistration() *registration.Resource {
	return u.registration
}

func (u *accountUser) GetPrivateKey() crypto.PrivateKey {
	return u.key
}
