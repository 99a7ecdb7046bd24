package certificate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
)

// SchemaVersion is stamped on every record written by Encode.
const SchemaVersion = 1

var eventDecoders = map[string]func(json.RawMessage) (Event, error){
	CertificateCreated{}.EventType():          decodeEvent[CertificateCreated],
	CertificateOrdered{}.EventType():          decodeEvent[CertificateOrdered],
	CertificateOrderFailure{}.EventType():     decodeEvent[CertificateOrderFailure],
	CertificateReOrderedStarted{}.EventType(): decodeEvent[CertificateReOrderedStarted],
	CertificateReOrdered{}.EventType():        decodeEvent[CertificateReOrdered],
	CertificateReOrderFailure{}.EventType():   decodeEvent[CertificateReOrderFailure],
	CertificatePublished{}.EventType():        decodeEvent[CertificatePublished],
	CertificatePublishFailure{}.EventType():   decodeEvent[CertificatePublishFailure],
	CertificateDeleted{}.EventType():          decodeEvent[CertificateDeleted],
}

func decodeEvent[T Event](raw json.RawMessage) (Event, error) {
	var ev T
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Encode converts an event to a log record keyed by its root domain.
func Encode(ev Event) (eventlog.Record, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eventlog.Record{}, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	return eventlog.Record{
		EntityID: ev.Key().Domain,
		Type:     ev.EventType(),
		Version:  SchemaVersion,
		Payload:  payload,
	}, nil
}

// Decode converts a stored record back into its event.
func Decode(stored eventlog.StoredEvent) (Event, error) {
	decode, ok := eventDecoders[stored.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, stored.Type)
	}
	ev, err := decode(stored.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s at sequence %d: %w", ErrMalformedEvent, stored.Type, stored.Sequence, err)
	}
	return ev, nil
}

// exposedIssue is the public shape of an ordered certificate: key material stays internal.
type exposedIssue struct {
	Domain    string    `json:"domain"`
	Subdomain string    `json:"subdomain,omitempty"`
	Wildcard  bool      `json:"wildcard"`
	Expire    time.Time `json:"expire"`
}

// Exposed returns the representation of ev that is safe to show outside the core.
func Exposed(ev Event) any {
	switch e := ev.(type) {
	case CertificateOrdered:
		return exposedIssue{Domain: e.Domain, Subdomain: e.Subdomain, Wildcard: e.Wildcard, Expire: e.Certificate.Expire}
	case CertificateReOrdered:
		return exposedIssue{Domain: e.Domain, Subdomain: e.Subdomain, Wildcard: e.Wildcard, Expire: e.Certificate.Expire}
	default:
		return ev
	}
}
