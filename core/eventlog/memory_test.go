package eventlog_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
)

func record(entity, typ string) eventlog.Record {
	return eventlog.Record{
		EntityID: entity,
		Type:     typ,
		Version:  1,
		Payload:  json.RawMessage(`{"domain":"` + entity + `"}`),
	}
}

func TestMemoryLogAppendAssignsSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	log := eventlog.NewMemoryLog(eventlog.WithMemoryClock(func() time.Time { return fixed }))

	first, err := log.Append(ctx, record("example.com", "CertificateCreated"))
	require.NoError(t, err)
	second, err := log.Append(ctx, record("example.org", "CertificateCreated"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, int64(2), second.Sequence)
	assert.NotEmpty(t, first.UniqueID)
	assert.NotEqual(t, first.UniqueID, second.UniqueID)
	assert.Equal(t, fixed, first.Timestamp)
}

func TestMemoryLogAppendValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := eventlog.NewMemoryLog()

	tests := []struct {
		name string
		rec  eventlog.Record
		err  error
	}{
		{"missing entity", eventlog.Record{Type: "X", Payload: json.RawMessage(`{}`)}, eventlog.ErrMissingEntityID},
		{"missing type", eventlog.Record{EntityID: "e", Payload: json.RawMessage(`{}`)}, eventlog.ErrMissingEventType},
		{"missing payload", eventlog.Record{EntityID: "e", Type: "X"}, eventlog.ErrMissingPayload},
		{"invalid payload", eventlog.Record{EntityID: "e", Type: "X", Payload: json.RawMessage(`{`)}, eventlog.ErrInvalidPayload},
	}
	for _, tt := range tests {
		_, err := log.Append(ctx, tt.rec)
		assert.ErrorIs(t, err, tt.err, tt.name)
	}
	assert.Equal(t, 0, log.Len())
}

func TestMemoryLogAppendHookFailure(t *testing.T) {
	t.Parallel()
	outage := errors.New("disk full")
	log := eventlog.NewMemoryLog(eventlog.WithAppendHook(func(eventlog.Record) error { return outage }))

	_, err := log.Append(context.Background(), record("example.com", "CertificateCreated"))
	assert.ErrorIs(t, err, eventlog.ErrStorage)
	assert.ErrorIs(t, err, outage)
	assert.Equal(t, 0, log.Len())
}

func TestMemoryLogLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := eventlog.NewMemoryLog()

	for _, entity := range []string{"a.com", "b.com", "a.com", "c.com", "a.com"} {
		_, err := log.Append(ctx, record(entity, "CertificateCreated"))
		require.NoError(t, err)
	}

	all, err := log.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, ev := range all {
		assert.Equal(t, int64(i+1), ev.Sequence)
	}

	tail, err := log.LoadSince(ctx, 3)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(4), tail[0].Sequence)

	beyond, err := log.LoadSince(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	entity, err := log.LoadForEntity(ctx, "a.com", 1)
	require.NoError(t, err)
	require.Len(t, entity, 2)
	assert.Equal(t, int64(3), entity[0].Sequence)
	assert.Equal(t, int64(5), entity[1].Sequence)

	_, err = log.LoadSince(ctx, -1)
	assert.ErrorIs(t, err, eventlog.ErrInvalidSequence)
}

func TestMemoryLogCommitOffsets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := eventlog.NewMemoryLog()

	offset, err := log.Offset(ctx, "saga")
	require.NoError(t, err)
	assert.Zero(t, offset)

	require.NoError(t, log.Commit(ctx, "saga", 4))
	require.NoError(t, log.Commit(ctx, "saga", 4))
	require.NoError(t, log.Commit(ctx, "saga", 2))

	offset, err = log.Offset(ctx, "saga")
	require.NoError(t, err)
	assert.Equal(t, int64(4), offset)

	assert.ErrorIs(t, log.Commit(ctx, "", 1), eventlog.ErrMissingGroupID)
	assert.ErrorIs(t, log.Commit(ctx, "saga", -1), eventlog.ErrInvalidSequence)
}

func TestMemoryLogSubscribe(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := eventlog.NewMemoryLog()

	first := log.Subscribe(ctx)
	second := log.Subscribe(ctx)

	appended, err := log.Append(ctx, record("example.com", "CertificateCreated"))
	require.NoError(t, err)

	for _, sub := range []*eventlog.Subscription{first, second} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, appended.Sequence, ev.Sequence)
		case <-time.After(time.Second):
			t.Fatal("no live notification")
		}
	}

	first.Close()
	require.Eventually(t, func() bool {
		_, ok := <-first.Events()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryLogConcurrentAppends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := eventlog.NewMemoryLog()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := log.Append(ctx, record("example.com", "CertificateCreated"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := log.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 50)
	for i, ev := range all {
		assert.Equal(t, int64(i+1), ev.Sequence)
	}
}

func TestMemoryLogClose(t *testing.T) {
	t.Parallel()
	log := eventlog.NewMemoryLog()
	require.NoError(t, log.Close())

	_, err := log.Append(context.Background(), record("example.com", "CertificateCreated"))
	assert.ErrorIs(t, err, eventlog.ErrClosed)
}
