package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubBasic(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "combat.events")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "combat.events", `{"type":"died"}`))

	select {
	case msg := <-ch:
		assert.Equal(t, "combat.events", msg.Channel)
		assert.Equal(t, `{"type":"died"}`, msg.Payload)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestPubSubCancelClosesOnce(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "a", "b")
	require.NoError(t, err)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
	assert.NoError(t, ps.Publish(ctx, "a", "msg"))
}

func TestPubSubFullBufferDrops(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()
	_, cancel, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "ch", "1"))
	assert.ErrorIs(t, ps.Publish(ctx, "ch", "2"), ErrSubscriberFull)
	assert.Equal(t, int64(1), ps.Dropped())
}

func TestPubSubMultipleSubscribers(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch1, cancel1, _ := ps.Subscribe(ctx, "broadcast")
	ch2, cancel2, _ := ps.Subscribe(ctx, "broadcast")
	defer cancel1()
	defer cancel2()

	require.NoError(t, ps.Publish(ctx, "broadcast", "world"))

	for _, ch := range []<-chan *LocalMessage{ch1, ch2} {
		select {
		case msg := <-ch:
			assert.Equal(t, "world", msg.Payload)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber did not receive message")
		}
	}
}

func TestPubSubContextCancelUnsubscribes(t *testing.T) {
	ps := NewPubSub(4)
	ctx, stop := context.WithCancel(context.Background())
	ch, _, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)

	stop()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("channel not closed after context cancel")
	}
	assert.NoError(t, ps.Publish(context.Background(), "ch", "late"))
}
