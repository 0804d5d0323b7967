package changefeed

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		require.True(t, ok, "subscription closed unexpectedly")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func waitClosed(t *testing.T, sub Subscription) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Messages():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription was not closed")
		}
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "signup_requests:abc", Topic("signup_requests", "abc"))
}

func TestLocalFeedPublishSubscribe(t *testing.T) {
	feed := NewLocalFeed()
	defer feed.Close()

	sub, err := feed.Subscribe(context.Background(), "signup_requests:1")
	require.NoError(t, err)
	other, err := feed.Subscribe(context.Background(), "signup_requests:2")
	require.NoError(t, err)

	require.NoError(t, feed.Publish(context.Background(), "signup_requests:1", "accepted"))

	msg := receive(t, sub)
	assert.Equal(t, "signup_requests:1", msg.Topic)
	assert.Equal(t, "accepted", msg.Payload)

	select {
	case <-other.Messages():
		t.Fatal("unrelated topic received a message")
	default:
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	waitClosed(t, sub)
	assert.Equal(t, 0, feed.Subscribers("signup_requests:1"))
	assert.Equal(t, 1, feed.Subscribers("signup_requests:2"))
}

func TestLocalFeedContextCancelReleasesSubscription(t *testing.T) {
	feed := NewLocalFeed()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := feed.Subscribe(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Subscribers("t"))

	cancel()
	waitClosed(t, sub)
	assert.Equal(t, 0, feed.Subscribers("t"))
}

func TestLocalFeedCloseStopsCancelWatcher(t *testing.T) {
	feed := NewLocalFeed()
	defer feed.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()
	sub, err := feed.Subscribe(ctx, "signup_requests:r1")
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, feed.Subscribers("signup_requests:r1"))
}

func TestLocalFeedFullBufferDoesNotBlock(t *testing.T) {
	feed := NewLocalFeed()
	sub, err := feed.Subscribe(context.Background(), "t")
	require.NoError(t, err)

	for i := 0; i < localBuffer*2; i++ {
		require.NoError(t, feed.Publish(context.Background(), "t", "x"))
	}
	assert.Len(t, sub.Messages(), localBuffer)
}

func TestLocalFeedClosed(t *testing.T) {
	feed := NewLocalFeed()
	sub, err := feed.Subscribe(context.Background(), "t")
	require.NoError(t, err)

	require.NoError(t, feed.Close())
	waitClosed(t, sub)

	_, err = feed.Subscribe(context.Background(), "t")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, feed.Publish(context.Background(), "t", "x"), ErrClosed)
}

func newRedisFeed(t *testing.T) *RedisFeed {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFeed(client, "dlool")
}

func TestRedisFeedPublishSubscribe(t *testing.T) {
	feed := newRedisFeed(t)
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, "signup_requests:1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, feed.Publish(ctx, "signup_requests:1", "rejected"))

	msg := receive(t, sub)
	assert.Equal(t, "signup_requests:1", msg.Topic)
	assert.Equal(t, "rejected", msg.Payload)
}

func TestRedisFeedCancelClosesSubscription(t *testing.T) {
	feed := newRedisFeed(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := feed.Subscribe(ctx, "signup_requests:1")
	require.NoError(t, err)

	cancel()
	waitClosed(t, sub)
}
