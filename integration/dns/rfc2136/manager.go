package rfc2136

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/dmitrymomot/letsautomate/core/challenge"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

var _ challenge.DNS = (*Manager)(nil)

// Manager applies dynamic updates to one primary nameserver.
type Manager struct {
	nameserver string
	opts       options
}

// New creates a Manager for nameserver ("host" or "host:port").
func New(nameserver string, opts ...Option) (*Manager, error) {
	nameserver = strings.TrimSpace(nameserver)
	if nameserver == "" {
		return nil, ErrNoNameserver
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if (o.tsigKey == "") != (o.tsigSecret == "") {
		return nil, ErrIncompleteTSIG
	}

	m := &Manager{nameserver: withPort(nameserver), opts: o}
	if len(m.opts.resolvers) == 0 {
		m.opts.resolvers = []string{m.nameserver}
	}
	return m, nil
}

// GetDomain transfers the zone of domain. Record names are relative to the
// zone; the apex has an empty name.
func (m *Manager) GetDomain(ctx context.Context, domain string) (challenge.Zone, error) {
	zone, err := zoneName(domain)
	if err != nil {
		return challenge.Zone{}, err
	}
	if err := ctx.Err(); err != nil {
		return challenge.Zone{}, err
	}

	msg := new(dns.Msg).SetAxfr(zone)
	tr := &dns.Transfer{
		DialTimeout:  m.opts.timeout,
		ReadTimeout:  m.opts.timeout,
		WriteTimeout: m.opts.timeout,
	}
	if m.signed() {
		tr.TsigSecret = map[string]string{m.opts.tsigKey: m.opts.tsigSecret}
		m.sign(msg)
	}

	envelopes, err := tr.In(msg, m.nameserver)
	if err != nil {
		return challenge.Zone{}, errors.Join(ErrTransferFailed, err)
	}

	out := challenge.Zone{Name: strings.TrimSuffix(zone, ".")}
	seen := make(map[string]struct{})
	for env := range envelopes {
		if env.Error != nil {
			return challenge.Zone{}, errors.Join(ErrTransferFailed, env.Error)
		}
		for _, rr := range env.RR {
			rec, ok := toRecord(zone, rr)
			if !ok {
				continue
			}
			// The SOA opens and closes the transfer.
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			out.Records = append(out.Records, rec)
		}
	}
	return out, nil
}

// CreateRecord adds a TXT record. Adding a record that already exists is a no-op
// on the server and returns the same ID.
func (m *Manager) CreateRecord(ctx context.Context, domain string, r challenge.Record) (challenge.Record, error) {
	zone, err := zoneName(domain)
	if err != nil {
		return challenge.Record{}, err
	}
	if !strings.EqualFold(r.Type, "TXT") {
		return challenge.Record{}, ErrUnsupportedType
	}

	rr := txtRR(ownerName(zone, r.Name), r.Value, r.TTL)
	msg := new(dns.Msg).SetUpdate(zone)
	msg.Insert([]dns.RR{rr})
	if err := m.update(ctx, msg); err != nil {
		return challenge.Record{}, fmt.Errorf("create %s TXT record: %w", rr.Hdr.Name, err)
	}

	m.opts.log.DebugContext(ctx, "dns record created",
		logger.Component("rfc2136"),
		logger.Domain(strings.TrimSuffix(rr.Hdr.Name, ".")))

	r.Type = "TXT"
	r.ID = encodeID(r.Name, r.Type, r.Value)
	return r, nil
}

// DeleteRecord removes the record identified by id. Removing a record that
// does not exist succeeds.
func (m *Manager) DeleteRecord(ctx context.Context, domain, id string) error {
	zone, err := zoneName(domain)
	if err != nil {
		return err
	}
	name, typ, value, err := decodeID(id)
	if err != nil {
		return err
	}
	if typ != "TXT" {
		return ErrUnsupportedType
	}

	rr := txtRR(ownerName(zone, name), value, 0)
	msg := new(dns.Msg).SetUpdate(zone)
	msg.Remove([]dns.RR{rr})
	if err := m.update(ctx, msg); err != nil {
		return fmt.Errorf("delete %s TXT record: %w", rr.Hdr.Name, err)
	}
	return nil
}

// ResolveTXT returns the TXT values at name that every resolver reports.
func (m *Manager) ResolveTXT(ctx context.Context, domain, name string) ([]string, error) {
	zone, err := zoneName(domain)
	if err != nil {
		return nil, err
	}
	fqdn := ownerName(zone, name)

	var common []string
	for i, server := range m.opts.resolvers {
		values, err := m.queryTXT(ctx, fqdn, server)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			common = values
			continue
		}
		common = slices.DeleteFunc(common, func(v string) bool {
			return !slices.Contains(values, v)
		})
	}
	return common, nil
}

func (m *Manager) queryTXT(ctx context.Context, fqdn, server string) ([]string, error) {
	msg := new(dns.Msg).SetQuestion(fqdn, dns.TypeTXT)
	msg.RecursionDesired = false

	reply, err := m.exchange(ctx, msg, server)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	switch reply.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s answered %s", ErrQueryFailed, server, dns.RcodeToString[reply.Rcode])
	}

	var values []string
	for _, rr := range reply.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			values = append(values, strings.Join(txt.Txt, ""))
		}
	}
	return values, nil
}

func (m *Manager) update(ctx context.Context, msg *dns.Msg) error {
	if m.signed() {
		m.sign(msg)
	}
	reply, err := m.exchange(ctx, msg, m.nameserver)
	if err != nil {
		return err
	}
	if reply.Rcode != dns.RcodeSuccess {
		return fmt.Errorf("%w: %s", ErrUpdateRejected, dns.RcodeToString[reply.Rcode])
	}
	return nil
}

func (m *Manager) exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	client := &dns.Client{Net: m.opts.net, Timeout: m.opts.timeout}
	if m.signed() {
		client.TsigSecret = map[string]string{m.opts.tsigKey: m.opts.tsigSecret}
	}
	reply, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	// A UDP answer that did not fit is retried over TCP.
	if reply.Truncated && m.opts.net == "udp" {
		client.Net = "tcp"
		reply, _, err = client.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, err
		}
	}
	return reply, nil
}

func (m *Manager) signed() bool {
	return m.opts.tsigKey != ""
}

func (m *Manager) sign(msg *dns.Msg) {
	msg.SetTsig(m.opts.tsigKey, m.opts.tsigAlg, m.opts.tsigFudge, time.Now().Unix())
}

func toRecord(zone string, rr dns.RR) (challenge.Record, bool) {
	hdr := rr.Header()
	typ := dns.TypeToString[hdr.Rrtype]
	if typ == "" {
		return challenge.Record{}, false
	}

	var value string
	if txt, ok := rr.(*dns.TXT); ok {
		value = strings.Join(txt.Txt, "")
	} else {
		// RR text is "name ttl class type rdata"; keep the rdata.
		value = strings.TrimPrefix(rr.String(), hdr.String())
	}

	name := relativeName(zone, hdr.Name)
	return challenge.Record{
		ID:    encodeID(name, typ, value),
		Name:  name,
		Type:  typ,
		Value: value,
		TTL:   int(hdr.Ttl),
	}, true
}

func txtRR(owner, value string, ttl int) *dns.TXT {
	return &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   owner,
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    uint32(max(ttl, 0)),
		},
		Txt: splitTXT(value),
	}
}

// splitTXT cuts value into the 255-byte character strings a TXT record holds.
func splitTXT(value string) []string {
	if len(value) <= 255 {
		return []string{value}
	}
	var parts []string
	for len(value) > 255 {
		parts = append(parts, value[:255])
		value = value[255:]
	}
	return append(parts, value)
}

func zoneName(domain string) (string, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" {
		return "", ErrEmptyDomain
	}
	return dns.Fqdn(strings.ToLower(domain)), nil
}

func ownerName(zone, name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if name == "" || name == "@" {
		return zone
	}
	return dns.Fqdn(strings.ToLower(name) + "." + zone)
}

func relativeName(zone, owner string) string {
	owner = strings.ToLower(dns.Fqdn(owner))
	if owner == zone {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSuffix(owner, zone), ".")
}

const idSeparator = "\x00"

func encodeID(name, typ, value string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name + idSeparator + typ + idSeparator + value))
}

func decodeID(id string) (name, typ, value string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", "", "", errors.Join(ErrInvalidRecordID, err)
	}
	parts := strings.SplitN(string(raw), idSeparator, 3)
	if len(parts) != 3 {
		return "", "", "", ErrInvalidRecordID
	}
	return parts[0], parts[1], parts[2], nil
}

func withPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, "53")
}
