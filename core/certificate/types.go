package certificate

import "time"

// Certificate is an issued leaf certificate with its issuer chain, PEM encoded.
type Certificate struct {
	Certificate string    `json:"certificate"`
	Expire      time.Time `json:"expire"`
	Chain       []string  `json:"chain"`
}

// Issued is what a successful order yields.
type Issued struct {
	PrivateKey  string
	CSR         string
	Certificate Certificate
}

// Bundle is the material handed to a Publisher.
type Bundle struct {
	Domain      string
	Subdomain   string
	PrivateKey  string
	CSR         string
	Certificate Certificate
}

// FQDN of the published certificate.
func (b Bundle) FQDN() string {
	return Key{Domain: b.Domain, Subdomain: b.Subdomain}.FQDN()
}
