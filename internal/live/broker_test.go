package live

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}

func TestBrokerCoalescesNotifications(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish()
	b.Publish()
	b.Publish()

	receive(t, ch)
	select {
	case <-ch:
		t.Fatal("expected bursts to collapse into one notification")
	default:
	}
}

func TestBrokerCancel(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()

	assert.Equal(t, 0, b.Subscribers())
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")

	assert.NotPanics(t, b.Publish)
}

func TestWatchRedeliversOnChange(t *testing.T) {
	b := NewBroker()
	var version atomic.Int64

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := Watch(ctx, b, func(context.Context) int64 { return version.Load() })

	assert.Equal(t, int64(0), receive(t, updates))

	version.Store(1)
	b.Publish()
	assert.Equal(t, int64(1), receive(t, updates))

	version.Store(5)
	b.Publish()
	assert.Equal(t, int64(5), receive(t, updates))
}

func TestWatchSlowReaderGetsLatest(t *testing.T) {
	b := NewBroker()
	var version atomic.Int64

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := Watch(ctx, b, func(context.Context) int64 { return version.Load() })
	assert.Equal(t, int64(0), receive(t, updates))

	for i := 1; i <= 3; i++ {
		version.Store(int64(i))
		b.Publish()
	}

	// intermediate versions may be skipped, but the last one must arrive
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-updates:
			if v == 3 {
				return
			}
		case <-deadline:
			t.Fatal("latest version never delivered")
		}
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	updates := Watch(ctx, b, func(context.Context) string { return "snapshot" })
	assert.Equal(t, "snapshot", receive(t, updates))

	cancel()

	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel was not closed")
	}

	require.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}
