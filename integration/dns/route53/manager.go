package route53

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	r53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/miekg/dns"

	"github.com/dmitrymomot/letsautomate/core/challenge"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

var _ challenge.DNS = (*Manager)(nil)

// Client is the subset of the Route 53 API the manager uses.
type Client interface {
	ListHostedZonesByName(ctx context.Context, params *r53.ListHostedZonesByNameInput, optFns ...func(*r53.Options)) (*r53.ListHostedZonesByNameOutput, error)
	ListResourceRecordSets(ctx context.Context, params *r53.ListResourceRecordSetsInput, optFns ...func(*r53.Options)) (*r53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *r53.ChangeResourceRecordSetsInput, optFns ...func(*r53.Options)) (*r53.ChangeResourceRecordSetsOutput, error)
	TestDNSAnswer(ctx context.Context, params *r53.TestDNSAnswerInput, optFns ...func(*r53.Options)) (*r53.TestDNSAnswerOutput, error)
	GetChange(ctx context.Context, params *r53.GetChangeInput, optFns ...func(*r53.Options)) (*r53.GetChangeOutput, error)
}

// Manager edits TXT record sets in Route 53 hosted zones.
type Manager struct {
	client Client
	opts   options

	// mu serializes read-modify-write cycles on record sets.
	mu sync.Mutex

	zoneMu sync.RWMutex
	zones  map[string]string
}

// New creates a Manager. Without static credentials in cfg the default AWS
// credential chain is used.
func New(ctx context.Context, cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	o := defaultOptions()
	base := []Option{WithTTL(cfg.TTL)}
	if cfg.HostedZoneID != "" {
		base = append(base, WithHostedZoneID(cfg.HostedZoneID))
	}
	if cfg.WaitForSync {
		base = append(base, WithWaitForSync(cfg.SyncTimeout))
	}
	for _, opt := range append(base, opts...) {
		opt(&o)
	}

	client := o.client
	if client == nil {
		loadOpts := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		if o.httpClient != nil {
			loadOpts = append(loadOpts, config.WithHTTPClient(o.httpClient))
		}
		loadOpts = append(loadOpts, o.configOptions...)

		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client = r53.NewFromConfig(awsCfg, func(ro *r53.Options) {
			if cfg.Endpoint != "" {
				ro.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			for _, opt := range o.clientOptions {
				opt(ro)
			}
		})
	}

	return &Manager{
		client: client,
		opts:   o,
		zones:  make(map[string]string),
	}, nil
}

// GetDomain lists every record set of the domain's hosted zone. Alias record
// sets carry no values and are skipped.
func (m *Manager) GetDomain(ctx context.Context, domain string) (challenge.Zone, error) {
	zone, err := zoneName(domain)
	if err != nil {
		return challenge.Zone{}, err
	}
	zoneID, err := m.zoneID(ctx, zone)
	if err != nil {
		return challenge.Zone{}, err
	}

	out := challenge.Zone{Name: strings.TrimSuffix(zone, ".")}
	input := &r53.ListResourceRecordSetsInput{HostedZoneId: aws.String(zoneID)}
	for {
		page, err := m.client.ListResourceRecordSets(ctx, input)
		if err != nil {
			return challenge.Zone{}, classifyError(err, "list record sets")
		}
		for _, set := range page.ResourceRecordSets {
			out.Records = append(out.Records, toRecords(zone, set)...)
		}
		if !page.IsTruncated {
			return out, nil
		}
		input.StartRecordName = page.NextRecordName
		input.StartRecordType = page.NextRecordType
		input.StartRecordIdentifier = page.NextRecordIdentifier
	}
}

// CreateRecord adds a value to the TXT record set at r.Name. Adding a value
// the set already holds changes nothing.
func (m *Manager) CreateRecord(ctx context.Context, domain string, r challenge.Record) (challenge.Record, error) {
	if !strings.EqualFold(r.Type, "TXT") {
		return challenge.Record{}, ErrUnsupportedType
	}
	zone, err := zoneName(domain)
	if err != nil {
		return challenge.Record{}, err
	}
	zoneID, err := m.zoneID(ctx, zone)
	if err != nil {
		return challenge.Record{}, err
	}

	owner := ownerName(zone, r.Name)
	r.Type = "TXT"
	if r.TTL <= 0 {
		r.TTL = m.opts.ttl
	}
	r.ID = encodeID(r.Name, r.Type, r.Value)

	m.mu.Lock()
	defer m.mu.Unlock()

	set, err := m.txtSet(ctx, zoneID, owner)
	if err != nil {
		return challenge.Record{}, err
	}
	if slices.Contains(set.values, r.Value) {
		return r, nil
	}

	values := append(slices.Clone(set.values), r.Value)
	changeID, err := m.change(ctx, zoneID, types.ChangeActionUpsert, owner, r.TTL, values)
	if err != nil {
		return challenge.Record{}, fmt.Errorf("create %s TXT record: %w", owner, err)
	}
	if m.opts.waitForSync {
		if err := m.waitInSync(ctx, changeID); err != nil {
			return challenge.Record{}, err
		}
	}

	m.opts.log.DebugContext(ctx, "dns record created",
		logger.Component("route53"),
		logger.Domain(strings.TrimSuffix(owner, ".")),
		logger.Count("values", len(values)))
	return r, nil
}

// DeleteRecord removes one value from its TXT record set, deleting the set
// when it was the last value. Removing a missing value succeeds.
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
	zoneID, err := m.zoneID(ctx, zone)
	if err != nil {
		return err
	}
	owner := ownerName(zone, name)

	m.mu.Lock()
	defer m.mu.Unlock()

	set, err := m.txtSet(ctx, zoneID, owner)
	if err != nil {
		return err
	}
	if !slices.Contains(set.values, value) {
		return nil
	}

	rest := slices.DeleteFunc(slices.Clone(set.values), func(v string) bool { return v == value })
	if len(rest) == 0 {
		_, err = m.change(ctx, zoneID, types.ChangeActionDelete, owner, set.ttl, set.values)
	} else {
		_, err = m.change(ctx, zoneID, types.ChangeActionUpsert, owner, set.ttl, rest)
	}
	if err != nil {
		return fmt.Errorf("delete %s TXT record: %w", owner, err)
	}
	return nil
}

// ResolveTXT returns the TXT values Route 53's authoritative servers answer
// for name.
func (m *Manager) ResolveTXT(ctx context.Context, domain, name string) ([]string, error) {
	zone, err := zoneName(domain)
	if err != nil {
		return nil, err
	}
	zoneID, err := m.zoneID(ctx, zone)
	if err != nil {
		return nil, err
	}
	owner := ownerName(zone, name)

	out, err := m.client.TestDNSAnswer(ctx, &r53.TestDNSAnswerInput{
		HostedZoneId: aws.String(zoneID),
		RecordName:   aws.String(strings.TrimSuffix(owner, ".")),
		RecordType:   types.RRTypeTxt,
	})
	if err != nil {
		return nil, errors.Join(ErrResolveFailed, classifyError(err, "test dns answer"))
	}

	switch code := aws.ToString(out.ResponseCode); code {
	case "NOERROR":
	case "NXDOMAIN":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s answered %s", ErrResolveFailed, owner, code)
	}

	values := make([]string, 0, len(out.RecordData))
	for _, data := range out.RecordData {
		values = append(values, parseTXT(data))
	}
	return values, nil
}

// Healthcheck verifies the API is reachable with the configured credentials.
func (m *Manager) Healthcheck(ctx context.Context) error {
	_, err := m.client.ListHostedZonesByName(ctx, &r53.ListHostedZonesByNameInput{
		MaxItems: aws.Int32(1),
	})
	if err != nil {
		return errors.Join(ErrHealthcheckFailed, classifyError(err, "list hosted zones"))
	}
	return nil
}

func (m *Manager) zoneID(ctx context.Context, zone string) (string, error) {
	if m.opts.hostedZoneID != "" {
		return m.opts.hostedZoneID, nil
	}

	m.zoneMu.RLock()
	id, ok := m.zones[zone]
	m.zoneMu.RUnlock()
	if ok {
		return id, nil
	}

	out, err := m.client.ListHostedZonesByName(ctx, &r53.ListHostedZonesByNameInput{
		DNSName:  aws.String(zone),
		MaxItems: aws.Int32(10),
	})
	if err != nil {
		return "", classifyError(err, "list hosted zones")
	}
	for _, hz := range out.HostedZones {
		if dns.CanonicalName(aws.ToString(hz.Name)) != zone {
			continue
		}
		if hz.Config != nil && hz.Config.PrivateZone {
			continue
		}
		id = trimZoneID(aws.ToString(hz.Id))
		m.zoneMu.Lock()
		m.zones[zone] = id
		m.zoneMu.Unlock()
		return id, nil
	}
	return "", fmt.Errorf("%w: %s", ErrZoneNotFound, strings.TrimSuffix(zone, "."))
}

type recordSet struct {
	values []string
	ttl    int
}

func (m *Manager) txtSet(ctx context.Context, zoneID, owner string) (recordSet, error) {
	out, err := m.client.ListResourceRecordSets(ctx, &r53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(owner),
		StartRecordType: types.RRTypeTxt,
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return recordSet{}, classifyError(err, "list record sets")
	}
	for _, set := range out.ResourceRecordSets {
		if set.Type != types.RRTypeTxt || canonicalName(aws.ToString(set.Name)) != owner {
			continue
		}
		rs := recordSet{ttl: int(aws.ToInt64(set.TTL))}
		for _, rr := range set.ResourceRecords {
			rs.values = append(rs.values, parseTXT(aws.ToString(rr.Value)))
		}
		return rs, nil
	}
	return recordSet{ttl: m.opts.ttl}, nil
}

func (m *Manager) change(ctx context.Context, zoneID string, action types.ChangeAction, owner string, ttl int, values []string) (string, error) {
	records := make([]types.ResourceRecord, 0, len(values))
	for _, v := range values {
		records = append(records, types.ResourceRecord{Value: aws.String(quoteTXT(v))})
	}

	out, err := m.client.ChangeResourceRecordSets(ctx, &r53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String("dns-01 challenge"),
			Changes: []types.Change{{
				Action: action,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(owner),
					Type:            types.RRTypeTxt,
					TTL:             aws.Int64(int64(ttl)),
					ResourceRecords: records,
				},
			}},
		},
	})
	if err != nil {
		return "", classifyError(err, "change record sets")
	}
	if out.ChangeInfo == nil {
		return "", nil
	}
	return aws.ToString(out.ChangeInfo.Id), nil
}

func (m *Manager) waitInSync(ctx context.Context, changeID string) error {
	if changeID == "" {
		return nil
	}
	waiter := r53.NewResourceRecordSetsChangedWaiter(m.client)
	if err := waiter.Wait(ctx, &r53.GetChangeInput{Id: aws.String(changeID)}, m.opts.syncTimeout); err != nil {
		return errors.Join(ErrChangeNotInSync, err)
	}
	return nil
}

func toRecords(zone string, set types.ResourceRecordSet) []challenge.Record {
	name := relativeName(zone, canonicalName(aws.ToString(set.Name)))
	typ := string(set.Type)
	ttl := int(aws.ToInt64(set.TTL))

	out := make([]challenge.Record, 0, len(set.ResourceRecords))
	for _, rr := range set.ResourceRecords {
		value := aws.ToString(rr.Value)
		if set.Type == types.RRTypeTxt {
			value = parseTXT(value)
		}
		out = append(out, challenge.Record{
			ID:    encodeID(name, typ, value),
			Name:  name,
			Type:  typ,
			Value: value,
			TTL:   ttl,
		})
	}
	return out
}

// quoteTXT renders value as the quoted character strings Route 53 expects,
// split at 255 bytes.
func quoteTXT(value string) string {
	escape := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	var parts []string
	for len(value) > 255 {
		parts = append(parts, `"`+escape.Replace(value[:255])+`"`)
		value = value[255:]
	}
	parts = append(parts, `"`+escape.Replace(value)+`"`)
	return strings.Join(parts, " ")
}

// parseTXT joins the quoted character strings of a TXT value.
func parseTXT(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, `"`) {
		return raw
	}

	var b strings.Builder
	quoted := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '"':
			quoted = !quoted
		case c == '\\' && quoted && i+1 < len(raw):
			i++
			if i+2 < len(raw) && isDigit(raw[i]) && isDigit(raw[i+1]) && isDigit(raw[i+2]) {
				n, _ := strconv.Atoi(raw[i : i+3])
				b.WriteByte(byte(n))
				i += 2
				continue
			}
			b.WriteByte(raw[i])
		case quoted:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func zoneName(domain string) (string, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" {
		return "", ErrEmptyDomain
	}
	return dns.CanonicalName(domain), nil
}

func ownerName(zone, name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if name == "" || name == "@" {
		return zone
	}
	return dns.CanonicalName(name + "." + zone)
}

func relativeName(zone, owner string) string {
	if owner == zone {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSuffix(owner, zone), ".")
}

// canonicalName undoes Route 53's octal escape for '*'.
func canonicalName(name string) string {
	return dns.CanonicalName(strings.ReplaceAll(name, `\052`, "*"))
}

func trimZoneID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "/hostedzone/")
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
