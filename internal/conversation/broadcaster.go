// ABOUTME: In-memory fan-out event broadcaster for chat views
// ABOUTME: Publishes view Events to all subscribers of a view key

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Broadcaster provides in-memory pub/sub for view Events. Subscribers
// register for a view key and receive events as the view changes. Publishing
// never blocks the publisher.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // viewKey -> subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for events on the given view key.
// Returns a channel that receives events and a subscription ID for later
// unsubscription. The subscription is cleaned up when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, viewKey string) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[viewKey]; !ok {
		b.subscribers[viewKey] = make(map[string]chan Event)
	}
	b.subscribers[viewKey][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "view_key", viewKey, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(viewKey, subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers of the given view key.
// Events are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(viewKey string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[viewKey] {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber",
				"view_key", viewKey,
				"kind", event.Kind)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(viewKey, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[viewKey]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, viewKey)
	}

	b.logger.Debug("subscriber removed", "view_key", viewKey, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for viewKey, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, viewKey)
	}

	b.logger.Debug("broadcaster closed")
}
