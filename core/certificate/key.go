package certificate

import "strings"

// Key identifies a certificate. An empty Subdomain means the root domain itself.
type Key struct {
	Domain    string
	Subdomain string
}

// NewKey trims both parts so a blank subdomain and an absent one are the same key.
func NewKey(domain, subdomain string) Key {
	return Key{Domain: strings.TrimSpace(domain), Subdomain: strings.TrimSpace(subdomain)}
}

// FQDN is "subdomain.domain", or the domain when there is no subdomain.
func (k Key) FQDN() string {
	if k.Subdomain == "" {
		return k.Domain
	}
	return k.Subdomain + "." + k.Domain
}

func (k Key) String() string {
	return k.FQDN()
}
