package certificate

import "time"

// Event is one of the nine certificate events.
type Event interface {
	Key() Key
	EventType() string
	isEvent()
}

// Failure is implemented by events recording a failed external call.
type Failure interface {
	Event
	FailureCause() string
}

// CertificateCreated registers a new certificate key.
type CertificateCreated struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Wildcard  bool   `json:"wildcard"`
}

// CertificateOrdered carries the material of the first issued certificate.
type CertificateOrdered struct {
	Domain      string      `json:"domain"`
	Subdomain   string      `json:"subdomain,omitempty"`
	Wildcard    bool        `json:"wildcard"`
	PrivateKey  string      `json:"privateKey"`
	CSR         string      `json:"csr"`
	Certificate Certificate `json:"certificate"`
}

// CertificateOrderFailure records a failed first order.
type CertificateOrderFailure struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Cause     string `json:"cause"`
}

// CertificateReOrderedStarted marks the start of a renewal.
type CertificateReOrderedStarted struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Wildcard  bool   `json:"wildcard"`
}

// CertificateReOrdered carries the material of a renewed certificate.
type CertificateReOrdered struct {
	Domain      string      `json:"domain"`
	Subdomain   string      `json:"subdomain,omitempty"`
	Wildcard    bool        `json:"wildcard"`
	PrivateKey  string      `json:"privateKey"`
	CSR         string      `json:"csr"`
	Certificate Certificate `json:"certificate"`
}

// CertificateReOrderFailure records a failed renewal.
type CertificateReOrderFailure struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Cause     string `json:"cause"`
}

// CertificatePublished records when the bundle reached the target platform.
type CertificatePublished struct {
	Domain    string    `json:"domain"`
	Subdomain string    `json:"subdomain,omitempty"`
	DateTime  time.Time `json:"dateTime"`
}

// CertificatePublishFailure records a failed publish.
type CertificatePublishFailure struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Cause     string `json:"cause"`
}

// CertificateDeleted removes the key from the state.
type CertificateDeleted struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
}

func (e CertificateCreated) Key() Key          { return NewKey(e.Domain, e.Subdomain) }
func (e CertificateOrdered) Key() Key          { return NewKey(e.Domain, e.Subdomain) }
func (e CertificateOrderFailure) Key() Key     { return NewKey(e.Domain, e.Subdomain) }
func (e CertificateReOrderedStarted) Key() Key { return NewKey(e.Domain, e.Subdomain) }
func (e CertificateReOrdered) Key() Key        { return NewKey(e.Domain, e.Subdomain) }
func (e CertificateReOrderFailure) Key() Key   { return NewKey(e.Domain, e.Subdomain) }
func (e CertificatePublished) Key() Key        { return NewKey(e.Domain, e.Subdomain) }
func (e CertificatePublishFailure) Key() Key   { return NewKey(e.Domain, e.Subdomain) }
func (e CertificateDeleted) Key() Key          { return NewKey(e.Domain, e.Subdomain) }

func (CertificateCreated) EventType() string          { return "CertificateCreated" }
func (CertificateOrdered) EventType() string          { return "CertificateOrdered" }
func (CertificateOrderFailure) EventType() string     { return "CertificateOrderFailure" }
func (CertificateReOrderedStarted) EventType() string { return "CertificateReOrderedStarted" }
func (CertificateReOrdered) EventType() string        { return "CertificateReOrdered" }
func (CertificateReOrderFailure) EventType() string   { return "CertificateReOrderFailure" }
func (CertificatePublished) EventType() string        { return "CertificatePublished" }
func (CertificatePublishFailure) EventType() string   { return "CertificatePublishFailure" }
func (CertificateDeleted) EventType() string          { return "CertificateDeleted" }

func (CertificateCreated) isEvent()          {}
func (CertificateOrdered) isEvent()          {}
func (CertificateOrderFailure) isEvent()     {}
func (CertificateReOrderedStarted) isEvent() {}
func (CertificateReOrdered) isEvent()        {}
func (CertificateReOrderFailure) isEvent()   {}
func (CertificatePublished) isEvent()        {}
func (CertificatePublishFailure) isEvent()   {}
func (CertificateDeleted) isEvent()          {}

func (e CertificateOrderFailure) FailureCause() string   { return e.Cause }
func (e CertificateReOrderFailure) FailureCause() string { return e.Cause }
func (e CertificatePublishFailure) FailureCause() string { return e.Cause }
