package route53_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	r53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/letsautomate/core/challenge"
	"github.com/dmitrymomot/letsautomate/integration/dns/route53"
)

// fakeRoute53 keeps record sets of one hosted zone keyed by "name|type".
type fakeRoute53 struct {
	mu      sync.Mutex
	zone    string
	zoneID  string
	private bool
	sets    map[string]types.ResourceRecordSet
	changes []types.Change
	lookups int

	changeErr error
}

func newFake() *fakeRoute53 {
	return &fakeRoute53{
		zone:   "example.com.",
		zoneID: "/hostedzone/Z123",
		sets:   make(map[string]types.ResourceRecordSet),
	}
}

func (f *fakeRoute53) put(name string, typ types.RRType, ttl int64, values ...string) {
	rrs := make([]types.ResourceRecord, 0, len(values))
	for _, v := range values {
		rrs = append(rrs, types.ResourceRecord{Value: aws.String(v)})
	}
	f.sets[name+"|"+string(typ)] = types.ResourceRecordSet{
		Name:            aws.String(name),
		Type:            typ,
		TTL:             aws.Int64(ttl),
		ResourceRecords: rrs,
	}
}

func (f *fakeRoute53) ListHostedZonesByName(_ context.Context, in *r53.ListHostedZonesByNameInput, _ ...func(*r53.Options)) (*r53.ListHostedZonesByNameOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	return &r53.ListHostedZonesByNameOutput{
		HostedZones: []types.HostedZone{{
			Id:     aws.String(f.zoneID),
			Name:   aws.String(f.zone),
			Config: &types.HostedZoneConfig{PrivateZone: f.private},
		}},
	}, nil
}

func (f *fakeRoute53) ListResourceRecordSets(_ context.Context, in *r53.ListResourceRecordSetsInput, _ ...func(*r53.Options)) (*r53.ListResourceRecordSetsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.sets))
	for k := range f.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &r53.ListResourceRecordSetsOutput{}
	for _, k := range keys {
		set := f.sets[k]
		if in.StartRecordName != nil && aws.ToString(set.Name) < aws.ToString(in.StartRecordName) {
			continue
		}
		out.ResourceRecordSets = append(out.ResourceRecordSets, set)
		if in.MaxItems != nil && int32(len(out.ResourceRecordSets)) >= *in.MaxItems {
			break
		}
	}
	return out, nil
}

func (f *fakeRoute53) ChangeResourceRecordSets(_ context.Context, in *r53.ChangeResourceRecordSetsInput, _ ...func(*r53.Options)) (*r53.ChangeResourceRecordSetsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	for _, c := range in.ChangeBatch.Changes {
		f.changes = append(f.changes, c)
		set := *c.ResourceRecordSet
		key := aws.ToString(set.Name) + "|" + string(set.Type)
		switch c.Action {
		case types.ChangeActionUpsert:
			f.sets[key] = set
		case types.ChangeActionDelete:
			delete(f.sets, key)
		}
	}
	return &r53.ChangeResourceRecordSetsOutput{
		ChangeInfo: &types.ChangeInfo{Id: aws.String("/change/C1"), Status: types.ChangeStatusPending},
	}, nil
}

func (f *fakeRoute53) TestDNSAnswer(_ context.Context, in *r53.TestDNSAnswerInput, _ ...func(*r53.Options)) (*r53.TestDNSAnswerOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[aws.ToString(in.RecordName)+".|"+string(in.RecordType)]
	if !ok {
		return &r53.TestDNSAnswerOutput{ResponseCode: aws.String("NXDOMAIN")}, nil
	}
	out := &r53.TestDNSAnswerOutput{ResponseCode: aws.String("NOERROR")}
	for _, rr := range set.ResourceRecords {
		out.RecordData = append(out.RecordData, aws.ToString(rr.Value))
	}
	return out, nil
}

func (f *fakeRoute53) GetChange(_ context.Context, in *r53.GetChangeInput, _ ...func(*r53.Options)) (*r53.GetChangeOutput, error) {
	return &r53.GetChangeOutput{
		ChangeInfo: &types.ChangeInfo{Id: in.Id, Status: types.ChangeStatusInsync},
	}, nil
}

func (f *fakeRoute53) values(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[name+"|TXT"]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set.ResourceRecords))
	for _, rr := range set.ResourceRecords {
		out = append(out, aws.ToString(rr.Value))
	}
	return out
}

func newManager(t *testing.T, fake *fakeRoute53, opts ...route53.Option) *route53.Manager {
	t.Helper()
	m, err := route53.New(context.Background(), route53.Config{Region: "us-east-1"},
		append([]route53.Option{route53.WithClient(fake)}, opts...)...)
	require.NoError(t, err)
	return m
}

func txt(name, value string) challenge.Record {
	return challenge.Record{Name: name, Type: "TXT", Value: value}
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := route53.New(context.Background(), route53.Config{})
	require.ErrorIs(t, err, route53.ErrInvalidConfig)
}

func TestCreateRecord(t *testing.T) {
	t.Parallel()

	t.Run("adds values to one record set", func(t *testing.T) {
		t.Parallel()
		fake := newFake()
		m := newManager(t, fake)
		ctx := context.Background()

		first, err := m.CreateRecord(ctx, "example.com", txt("_acme-challenge", "digest-a"))
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		assert.Equal(t, route53.DefaultTTL, first.TTL)

		_, err = m.CreateRecord(ctx, "example.com", txt("_acme-challenge", "digest-b"))
		require.NoError(t, err)

		assert.Equal(t, []string{`"digest-a"`, `"digest-b"`}, fake.values("_acme-challenge.example.com."))
	})

	t.Run("existing value is a no-op", func(t *testing.T) {
		t.Parallel()
		fake := newFake()
		fake.put("_acme-challenge.example.com.", types.RRTypeTxt, 300, `"digest-a"`)
		m := newManager(t, fake)

		rec, err := m.CreateRecord(context.Background(), "example.com", txt("_acme-challenge", "digest-a"))
		require.NoError(t, err)
		assert.Equal(t, "digest-a", rec.Value)
		assert.Empty(t, fake.changes)
	})

	t.Run("rejects non-TXT", func(t *testing.T) {
		t.Parallel()
		m := newManager(t, newFake())

		_, err := m.CreateRecord(context.Background(), "example.com", challenge.Record{Name: "www", Type: "A", Value: "1.2.3.4"})
		require.ErrorIs(t, err, route53.ErrUnsupportedType)
	})

	t.Run("waits for sync", func(t *testing.T) {
		t.Parallel()
		fake := newFake()
		m := newManager(t, fake, route53.WithWaitForSync(0))

		_, err := m.CreateRecord(context.Background(), "example.com", txt("_acme-challenge", "digest-a"))
		require.NoError(t, err)
	})

	t.Run("classifies api errors", func(t *testing.T) {
		t.Parallel()
		fake := newFake()
		fake.changeErr = &types.InvalidChangeBatch{Message: aws.String("bad")}
		m := newManager(t, fake)

		_, err := m.CreateRecord(context.Background(), "example.com", txt("_acme-challenge", "digest-a"))
		require.ErrorIs(t, err, route53.ErrInvalidChange)
	})
}

func TestDeleteRecord(t *testing.T) {
	t.Parallel()

	fake := newFake()
	m := newManager(t, fake)
	ctx := context.Background()

	a, err := m.CreateRecord(ctx, "example.com", txt("_acme-challenge", "digest-a"))
	require.NoError(t, err)
	b, err := m.CreateRecord(ctx, "example.com", txt("_acme-challenge", "digest-b"))
	require.NoError(t, err)

	require.NoError(t, m.DeleteRecord(ctx, "example.com", a.ID))
	assert.Equal(t, []string{`"digest-b"`}, fake.values("_acme-challenge.example.com."))

	require.NoError(t, m.DeleteRecord(ctx, "example.com", b.ID))
	assert.Nil(t, fake.values("_acme-challenge.example.com."))

	// already gone
	require.NoError(t, m.DeleteRecord(ctx, "example.com", b.ID))

	require.ErrorIs(t, m.DeleteRecord(ctx, "example.com", "%%%"), route53.ErrInvalidRecordID)
}

func TestGetDomain(t *testing.T) {
	t.Parallel()

	fake := newFake()
	fake.put("example.com.", types.RRTypeA, 300, "192.0.2.1")
	fake.put(`\052.example.com.`, types.RRTypeTxt, 60, `"wild"`)
	fake.put("_acme-challenge.example.com.", types.RRTypeTxt, 60, `"part-one" "part-two"`)
	m := newManager(t, fake)

	zone, err := m.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", zone.Name)

	byName := make(map[string]challenge.Record)
	for _, r := range zone.Records {
		byName[r.Name+"/"+r.Type] = r
	}
	require.Len(t, byName, 3)
	assert.Equal(t, "192.0.2.1", byName["/A"].Value)
	assert.Equal(t, "wild", byName["*/TXT"].Value)
	assert.Equal(t, "part-onepart-two", byName["_acme-challenge/TXT"].Value)

	// A record from GetDomain can be deleted by ID.
	require.NoError(t, m.DeleteRecord(context.Background(), "example.com", byName["_acme-challenge/TXT"].ID))
	assert.Nil(t, fake.values("_acme-challenge.example.com."))
}

func TestResolveTXT(t *testing.T) {
	t.Parallel()

	fake := newFake()
	fake.put("_acme-challenge.example.com.", types.RRTypeTxt, 60, `"digest-a"`, `"say \"hi\""`)
	m := newManager(t, fake)

	values, err := m.ResolveTXT(context.Background(), "example.com", "_acme-challenge")
	require.NoError(t, err)
	assert.Equal(t, []string{"digest-a", `say "hi"`}, values)

	values, err = m.ResolveTXT(context.Background(), "example.com", "_acme-challenge.missing")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestZoneLookup(t *testing.T) {
	t.Parallel()

	t.Run("cached", func(t *testing.T) {
		t.Parallel()
		fake := newFake()
		m := newManager(t, fake)

		for range 3 {
			_, err := m.ResolveTXT(context.Background(), "example.com", "x")
			require.NoError(t, err)
		}
		assert.Equal(t, 1, fake.lookups)
	})

	t.Run("private zones skipped", func(t *testing.T) {
		t.Parallel()
		fake := newFake()
		fake.private = true
		m := newManager(t, fake)

		_, err := m.GetDomain(context.Background(), "example.com")
		require.ErrorIs(t, err, route53.ErrZoneNotFound)
	})

	t.Run("pinned zone", func(t *testing.T) {
		t.Parallel()
		fake := newFake()
		m := newManager(t, fake, route53.WithHostedZoneID("/hostedzone/Z999"))

		_, err := m.GetDomain(context.Background(), "other.org")
		require.NoError(t, err)
		assert.Zero(t, fake.lookups)
	})
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	m := newManager(t, newFake())
	require.NoError(t, m.Healthcheck(context.Background()))
}
