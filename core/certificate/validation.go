package certificate

import (
	"regexp"

	"github.com/dmitrymomot/letsautomate/core/aggregate"
)

// fqdnLike matches a dot-terminated run of DNS labels, e.g. "www.example.com.".
var fqdnLike = regexp.MustCompile(`^([A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.)+$`)

func validateDomain(k Key) error {
	if k.Domain == "" {
		return aggregate.Reject("Domain is required")
	}
	return nil
}

func validateSubdomain(k Key) error {
	if k.Subdomain != "" && fqdnLike.MatchString(k.Subdomain) {
		return aggregate.Reject("Subdomain should end with %s", k.Domain)
	}
	return nil
}

func requireAbsent(state AllCertificates, k Key) error {
	if _, ok := state.Get(k); ok {
		return aggregate.Reject("Subdomain already exist")
	}
	return nil
}

func requireExisting(state AllCertificates, k Key) (CertificateState, error) {
	s, ok := state.Get(k)
	if !ok {
		return s, aggregate.Reject("Domain %s should be created", k.Domain)
	}
	return s, nil
}
