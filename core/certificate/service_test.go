package certificate_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/letsautomate/core/certificate"
	"github.com/dmitrymomot/letsautomate/core/eventlog"
)

func TestHistoryHidesKeyMaterial(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	for _, cmd := range []certificate.Command{
		certificate.CreateCertificate{Domain: "viking.com"},
		certificate.OrderCertificate{Domain: "viking.com"},
		certificate.CreateCertificate{Domain: "saxon.org"},
	} {
		_, err := f.service.Submit(ctx, cmd)
		require.NoError(t, err)
	}

	history, err := f.service.History(ctx, "viking.com", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].Sequence)
	assert.Equal(t, "CertificateCreated", history[0].Type)
	assert.Equal(t, "CertificateOrdered", history[1].Type)

	raw, err := json.Marshal(history[1])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "PRIVATE KEY")
	assert.NotContains(t, string(raw), "CERTIFICATE REQUEST")
	assert.Contains(t, string(raw), `"expire":"2024-05-09T09:30:00Z"`)

	history, err = f.service.History(ctx, "viking.com", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(2), history[0].Sequence)
}

func TestLiveEventsReplaysThenFollows(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com"})
	require.NoError(t, err)

	since := int64(0)
	live := f.service.LiveEvents(ctx, &since, eventlog.WithPollInterval(10*time.Millisecond))

	_, err = f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com", Subdomain: "www"})
	require.NoError(t, err)

	var got []int64
	for len(got) < 2 {
		select {
		case entry := <-live:
			got = append(got, entry.Sequence)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []int64{1, 2}, got)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-live:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestLiveEventsWithoutSinceOnlyDeliversNew(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)

	_, err := f.service.Submit(ctx, certificate.CreateCertificate{Domain: "viking.com"})
	require.NoError(t, err)

	live := f.service.LiveEvents(ctx, nil)

	_, err = f.service.Submit(ctx, certificate.DeleteCertificate{Domain: "viking.com"})
	require.NoError(t, err)

	select {
	case entry := <-live:
		assert.Equal(t, int64(2), entry.Sequence)
		assert.Equal(t, certificate.CertificateDeleted{Domain: "viking.com"}, entry.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("no live event")
	}
}
