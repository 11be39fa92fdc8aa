// ABOUTME: Tests for the Redis pub/sub relay
// ABOUTME: Covers publish/subscribe round-trip, isolation, no-subscriber drop, teardown

package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(t *testing.T) (*Publisher, *Subscriber) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewPublisher(rdb, nil), NewSubscriber(rdb, nil)
}

func TestRelay_RoundTrip(t *testing.T) {
	pub, sub := newTestRelay(t)
	ctx := context.Background()

	ch, err := sub.Subscribe(ctx, "thread-1")
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, "thread-1", Response{
		AIResponse: "hello there",
		ThreadID:   "thread-1",
	}))

	select {
	case payload := <-ch:
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(payload), &resp))
		assert.Equal(t, "hello there", resp.AIResponse)
		assert.Equal(t, "thread-1", resp.ThreadID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed payload")
	}
}

func TestRelay_ThreadsAreIsolated(t *testing.T) {
	pub, sub := newTestRelay(t)
	ctx := context.Background()

	ch1, err := sub.Subscribe(ctx, "thread-1")
	require.NoError(t, err)
	ch2, err := sub.Subscribe(ctx, "thread-2")
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, "thread-1", Response{AIResponse: "for one", ThreadID: "thread-1"}))

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("thread-1 subscriber did not receive payload")
	}

	select {
	case payload := <-ch2:
		t.Fatalf("thread-2 subscriber received foreign payload: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelay_PublishWithoutSubscriberIsLost(t *testing.T) {
	pub, sub := newTestRelay(t)
	ctx := context.Background()

	// No subscriber attached: publish succeeds, message is gone.
	require.NoError(t, pub.Publish(ctx, "thread-1", Response{AIResponse: "dropped", ThreadID: "thread-1"}))

	ch, err := sub.Subscribe(ctx, "thread-1")
	require.NoError(t, err)

	select {
	case payload := <-ch:
		t.Fatalf("late subscriber received payload: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelay_CancelClosesChannel(t *testing.T) {
	pub, sub := newTestRelay(t)
	_ = pub

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := sub.Subscribe(ctx, "thread-1")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancellation")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancellation")
	}
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "chat_responses:abc", ChannelFor("abc"))
}
