package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublishSubscribe(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, "ch:events:bet_placed")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "ch:events:bet_placed", []byte("one")))
	assert.Equal(t, []byte("one"), recv(t, ch))

	// A non-matching channel is not delivered.
	require.NoError(t, m.Publish(ctx, "ch:events:pool_created", []byte("two")))
	select {
	case msg := <-ch:
		t.Fatalf("unexpected delivery: %s", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWildcardSubscription(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, "ch:*")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "ch:events:bet_placed", []byte("a")))
	require.NoError(t, m.Publish(ctx, "ch:events:phase_changed", []byte("b")))

	assert.Equal(t, []byte("a"), recv(t, ch))
	assert.Equal(t, []byte("b"), recv(t, ch))
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Subscribe(ctx, "ch:*")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("channel never closed")
	}

	// Publishing after unsubscribe is a no-op, not a panic.
	require.NoError(t, m.Publish(context.Background(), "ch:anything", []byte("late")))
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := m.Subscribe(ctx, "ch:*")
	require.NoError(t, err)

	// Overflow the buffer; Publish must keep returning immediately.
	for i := 0; i < 300; i++ {
		require.NoError(t, m.Publish(ctx, "ch:flood", []byte("x")))
	}
}
