// Package certificate is the event-sourced certificate aggregate.
//
// A certificate is identified by a Key: a root domain plus an optional
// subdomain. Its lifecycle is driven by six commands:
//
//	CreateCertificate     -> CertificateCreated
//	OrderCertificate      -> CertificateOrdered      | CertificateOrderFailure
//	StartRenewCertificate -> CertificateReOrderedStarted
//	RenewCertificate      -> CertificateReOrdered    | CertificateReOrderFailure
//	PublishCertificate    -> CertificatePublished    | CertificatePublishFailure
//	DeleteCertificate     -> CertificateDeleted
//
// Precondition failures are rejected with an aggregate.ValidationError and
// nothing is persisted. Ordering and publishing call external collaborators
// (Orderer, Publisher); their failures are persisted as failure events and
// returned as aggregate.ExternalError, so every attempt leaves a trace in the
// log.
//
// Events are stored as one JSON object per type, tagged with the type name.
// The log entity id is the root domain, so a domain's history covers all of
// its subdomains.
//
// Service is the facade used by outer layers: command submission, current
// state, per-domain history and a live event feed. DomainView is a read model
// summarizing certificates per domain. FollowUp maps events to the next
// lifecycle command for the saga.
package certificate
