package certificate

import (
	"errors"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
)

// FollowUp returns the command that continues the lifecycle after ev, if any.
func FollowUp(ev Event) (Command, bool) {
	switch e := ev.(type) {
	case CertificateCreated:
		return OrderCertificate{Domain: e.Domain, Subdomain: e.Subdomain, Wildcard: e.Wildcard}, true
	case CertificateOrdered:
		return PublishCertificate{Domain: e.Domain, Subdomain: e.Subdomain}, true
	case CertificateReOrderedStarted:
		return RenewCertificate{Domain: e.Domain, Subdomain: e.Subdomain, Wildcard: e.Wildcard}, true
	case CertificateReOrdered:
		return PublishCertificate{Domain: e.Domain, Subdomain: e.Subdomain}, true
	}
	return nil, false
}

// DeriveFollowUp decodes a stored event and maps it through FollowUp. Event
// types this version does not know yield no command.
func DeriveFollowUp(stored eventlog.StoredEvent) (Command, bool, error) {
	ev, err := Decode(stored)
	if errors.Is(err, ErrUnknownEventType) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	cmd, ok := FollowUp(ev)
	return cmd, ok, nil
}
