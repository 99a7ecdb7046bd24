package lego

import (
	"net/http"
	"strings"

	golego "github.com/go-acme/lego/v4/lego"
)

const (
	LetsEncryptProduction = golego.LEDirectoryProduction
	LetsEncryptStaging    = golego.LEDirectoryStaging

	defaultUserAgent = "letsautomate"
)

type options struct {
	directoryURL string
	email        string
	userAgent    string
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*options)

// WithDirectoryURL sets the ACME directory. Defaults to Let's Encrypt production.
func WithDirectoryURL(url string) Option {
	return func(o *options) {
		if url = strings.TrimSpace(url); url != "" {
			o.directoryURL = url
		}
	}
}

// WithEmail sets the account contact address.
func WithEmail(email string) Option {
	return func(o *options) {
		o.email = strings.TrimSpace(email)
	}
}

// WithUserAgent sets the User-Agent sent to the CA.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua = strings.TrimSpace(ua); ua != "" {
			o.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the HTTP client built by lego.NewConfig.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}
