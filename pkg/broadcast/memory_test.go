package broadcast_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/letsautomate/pkg/broadcast"
)

func receive[T any](t *testing.T, ch <-chan broadcast.Message[T]) broadcast.Message[T] {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return broadcast.Message[T]{}
}

func TestMemoryBroadcasterFanOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := broadcast.NewMemoryBroadcaster[int](4)
	defer b.Close()

	first := b.Subscribe(ctx)
	second := b.Subscribe(ctx)
	require.Equal(t, 2, b.Subscribers())

	require.NoError(t, b.Broadcast(ctx, broadcast.Message[int]{Data: 7}))

	assert.Equal(t, 7, receive(t, first.Receive(ctx)).Data)
	assert.Equal(t, 7, receive(t, second.Receive(ctx)).Data)
}

func TestMemoryBroadcasterDropsForSlowSubscriber(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := broadcast.NewMemoryBroadcaster[int](2)
	defer b.Close()

	sub := b.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 10 {
			_ = b.Broadcast(ctx, broadcast.Message[int]{Data: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	assert.Equal(t, 0, receive(t, sub.Receive(ctx)).Data)
	assert.Equal(t, 1, receive(t, sub.Receive(ctx)).Data)
	assert.Equal(t, int64(8), b.Dropped())
}

func TestMemoryBroadcasterContextCancellation(t *testing.T) {
	t.Parallel()
	b := broadcast.NewMemoryBroadcaster[string](1)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-sub.Receive(context.Background())
	assert.False(t, ok)
}

func TestMemoryBroadcasterClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := broadcast.NewMemoryBroadcaster[string](1)

	sub := b.Subscribe(ctx)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, ok := <-sub.Receive(ctx)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Broadcast(ctx, broadcast.Message[string]{Data: "late"}), broadcast.ErrBroadcasterClosed)

	late := b.Subscribe(ctx)
	_, ok = <-late.Receive(ctx)
	assert.False(t, ok)
}

func TestMemoryBroadcasterConcurrentUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := broadcast.NewMemoryBroadcaster[int](16)
	defer b.Close()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := b.Subscribe(ctx)
			_ = sub.Close()
		}()
		go func() {
			defer wg.Done()
			_ = b.Broadcast(ctx, broadcast.Message[int]{Data: 1})
		}()
	}
	wg.Wait()
}
