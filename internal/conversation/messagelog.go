// ABOUTME: Append-only per-conversation message log over the durable store
// ABOUTME: Serializes read-modify-write per conversation so appends are never lost

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/ragchat/internal/ids"
	"github.com/2389/ragchat/internal/store"
)

// ErrNoConversation is returned when appending a message that names no conversation.
var ErrNoConversation = errors.New("message has no conversation id")

// MessageLog is the ordered, append-only message sequence of each conversation.
type MessageLog struct {
	store  store.Store
	ids    ids.Generator
	locks  *KeyedMutex
	now    func() time.Time
	logger *slog.Logger
}

// NewMessageLog creates a MessageLog. Pass nil logger for default.
func NewMessageLog(s store.Store, gen ids.Generator, logger *slog.Logger) *MessageLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageLog{
		store:  s,
		ids:    gen,
		locks:  NewKeyedMutex(),
		now:    time.Now,
		logger: logger.With("component", "messagelog"),
	}
}

// NewMessage builds a message with a fresh id and the current time. The
// message is not persisted until passed to Append.
func (l *MessageLog) NewMessage(conversationID int64, sender store.Sender, content string, sources []store.Source) *store.Message {
	return &store.Message{
		ID:             l.ids.Next(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Sources:        sources,
		CreatedAt:      l.now().UTC(),
	}
}

// Get returns the persisted sequence for a conversation; empty when none exists.
func (l *MessageLog) Get(ctx context.Context, conversationID int64) ([]*store.Message, error) {
	msgs, err := l.store.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("reading message log: %w", err)
	}
	return msgs, nil
}

// Append places msg after every message already persisted for its
// conversation and writes the whole sequence in one store call.
func (l *MessageLog) Append(ctx context.Context, msg *store.Message) error {
	if msg.ConversationID == 0 {
		return ErrNoConversation
	}
	if msg.ID == 0 {
		msg.ID = l.ids.Next()
	}

	unlock, err := l.locks.Lock(ctx, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("waiting for message log: %w", err)
	}
	defer unlock()

	msgs, err := l.store.GetMessages(ctx, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("reading message log: %w", err)
	}
	msgs = append(msgs, msg.Clone())

	if err := l.store.ReplaceMessages(ctx, msg.ConversationID, msgs); err != nil {
		return fmt.Errorf("writing message log: %w", err)
	}

	l.logger.Debug("message appended",
		"conversation_id", msg.ConversationID,
		"message_id", msg.ID,
		"sender", msg.Sender,
		"length", len(msgs))
	return nil
}
