// ABOUTME: Tests for the view event Broadcaster
// ABOUTME: Covers fan-out, key isolation, slow consumers, cancellation cleanup, and Close

package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcaster_MultipleSubscribersReceiveSameEvent(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch1, _ := b.Subscribe(t.Context(), "view-1")
	ch2, _ := b.Subscribe(t.Context(), "view-1")

	b.Publish("view-1", Event{Kind: EventLoading, ConversationID: 7, Loading: true})

	for _, ch := range []<-chan Event{ch1, ch2} {
		ev := receive(t, ch)
		assert.Equal(t, EventLoading, ev.Kind)
		assert.Equal(t, int64(7), ev.ConversationID)
		assert.True(t, ev.Loading)
	}
}

func TestBroadcaster_DifferentViewKeysAreIsolated(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch1, _ := b.Subscribe(t.Context(), "view-1")
	ch2, _ := b.Subscribe(t.Context(), "view-2")

	b.Publish("view-1", Event{Kind: EventError, Error: "Failed to send message"})

	assert.Equal(t, "Failed to send message", receive(t, ch1).Error)
	select {
	case <-ch2:
		t.Fatal("view-2 should not receive events for view-1")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcaster_SlowConsumerDoesNotBlockPublisher(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	_, _ = b.Subscribe(t.Context(), "view-1") // never read
	ch2, _ := b.Subscribe(t.Context(), "view-1")

	done := make(chan struct{})
	go func() {
		for range subscriberBufferSize * 2 {
			b.Publish("view-1", Event{Kind: EventLoading})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
	assert.Equal(t, EventLoading, receive(t, ch2).Kind)
}

func TestBroadcaster_ContextCancellationCleansUp(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "view-1")
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after context cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}

	b.mu.RLock()
	_, exists := b.subscribers["view-1"]
	b.mu.RUnlock()
	assert.False(t, exists, "empty view key should be removed")
}

func TestBroadcaster_CloseClosesAllSubscriptions(t *testing.T) {
	b := NewBroadcaster(nil)

	ch1, _ := b.Subscribe(t.Context(), "view-1")
	ch2, _ := b.Subscribe(t.Context(), "view-2")

	b.Close()

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel %d should be closed after Close()", i)
		case <-time.After(time.Second):
			t.Fatalf("channel %d not closed after Close()", i)
		}
	}

	// Publishing after Close must not panic
	b.Publish("view-1", Event{Kind: EventMessage})
}

func TestBroadcaster_ConcurrentPublishSubscribe(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(t.Context())

	for range 10 {
		wg.Go(func() {
			ch, _ := b.Subscribe(ctx, "view-concurrent")
			for range 5 {
				select {
				case <-ch:
				case <-time.After(200 * time.Millisecond):
					return
				}
			}
		})
	}
	for range 10 {
		wg.Go(func() {
			for range 10 {
				b.Publish("view-concurrent", Event{Kind: EventMessage})
			}
		})
	}

	wg.Wait()
	cancel()
}

func TestBroadcaster_SubscribeReturnsUniqueIDs(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	_, id1 := b.Subscribe(t.Context(), "view-1")
	_, id2 := b.Subscribe(t.Context(), "view-1")

	require.NotEqual(t, id1, id2)
}
