package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := m.Subscribe(ctx, "updates")
	require.NoError(t, err)
	b, err := m.Subscribe(ctx, "updates")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "updates", []byte("hello")))

	assert.Equal(t, []byte("hello"), <-a)
	assert.Equal(t, []byte("hello"), <-b)
}

func TestChannelsAreIsolated(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other, err := m.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "updates", []byte("hello")))

	select {
	case <-other:
		t.Fatal("message leaked across channels")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubscribersOnlySeeLaterMessages(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, m.Publish(ctx, "updates", []byte("early")))

	ch, err := m.Subscribe(ctx, "updates")
	require.NoError(t, err)
	require.NoError(t, m.Publish(ctx, "updates", []byte("late")))

	assert.Equal(t, []byte("late"), <-ch)
}

func TestCancelClosesSubscription(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Subscribe(ctx, "updates")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel closes on cancellation")
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}

	// Publishing after removal must not panic or block.
	require.NoError(t, m.Publish(context.Background(), "updates", []byte("to nobody")))
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, "updates")
	require.NoError(t, err)

	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			m.Publish(ctx, "updates", []byte{byte(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, ch, 128, "buffer holds the first messages, the rest are dropped")
}
