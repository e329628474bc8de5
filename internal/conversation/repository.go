// ABOUTME: Conversation repository over the durable store
// ABOUTME: Owns id allocation, placeholder titles, title derivation, and cascading deletes

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/ragchat/internal/ids"
	"github.com/2389/ragchat/internal/store"
)

const (
	// PlaceholderTitle names a conversation until its first message is sent.
	PlaceholderTitle = "New Chat"

	// DefaultModel is the model label shown next to new conversations.
	DefaultModel = "Flash"

	// MaxTitleLength is the number of characters kept from the first message.
	MaxTitleLength = 30

	titleEllipsis = "..."
)

// Repository provides CRUD over the Conversations collection.
type Repository struct {
	store  store.Store
	ids    ids.Generator
	now    func() time.Time
	logger *slog.Logger
}

// NewRepository creates a Repository. Pass nil logger for default.
func NewRepository(s store.Store, gen ids.Generator, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:  s,
		ids:    gen,
		now:    time.Now,
		logger: logger.With("component", "conversation"),
	}
}

// List returns all conversations, newest first.
func (r *Repository) List(ctx context.Context) ([]*store.Conversation, error) {
	return r.store.ListConversations(ctx)
}

// Get returns the conversation with the given id, or store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (*store.Conversation, error) {
	return r.store.GetConversation(ctx, id)
}

// Synthesize builds a conversation value with a fresh id that has not been
// written anywhere. A non-positive spaceID selects the default space.
func (r *Repository) Synthesize(spaceID int64) *store.Conversation {
	if spaceID <= 0 {
		spaceID = store.DefaultSpaceID
	}
	return &store.Conversation{
		ID:        r.ids.Next(),
		Title:     PlaceholderTitle,
		SpaceID:   spaceID,
		Model:     DefaultModel,
		CreatedAt: r.now().UTC(),
	}
}

// Create allocates and persists a new placeholder conversation.
func (r *Repository) Create(ctx context.Context, spaceID int64) (*store.Conversation, error) {
	conv := r.Synthesize(spaceID)
	if err := r.Insert(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Insert persists a previously synthesized conversation.
func (r *Repository) Insert(ctx context.Context, conv *store.Conversation) error {
	if err := r.store.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, store.ErrDuplicateConversation) {
			return err
		}
		return fmt.Errorf("creating conversation: %w", err)
	}
	r.logger.Debug("conversation created", "conversation_id", conv.ID, "space_id", conv.SpaceID)
	return nil
}

// Rename sets the title of an existing conversation. Renaming to the current
// title issues no write.
func (r *Repository) Rename(ctx context.Context, id int64, title string) error {
	conv, err := r.store.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	if conv.Title == title {
		return nil
	}

	conv.Title = title
	if err := r.store.UpdateConversation(ctx, conv); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("renaming conversation: %w", err)
	}
	r.logger.Debug("conversation renamed", "conversation_id", id, "title", title)
	return nil
}

// Delete removes a conversation and its message sequence.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.store.DeleteConversation(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if err := r.store.DeleteMessages(ctx, id); err != nil {
		// The record is gone; an orphaned sequence reads as history only if the id is reused
		r.logger.Warn("failed to delete messages of deleted conversation", "conversation_id", id, "error", err)
	}
	r.logger.Debug("conversation deleted", "conversation_id", id)
	return nil
}

// DeriveTitle turns the first user message into a conversation title: the
// trimmed text, cut to MaxTitleLength characters with an ellipsis appended
// when anything was cut.
func DeriveTitle(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= MaxTitleLength {
		return trimmed
	}
	return string(runes[:MaxTitleLength]) + titleEllipsis
}
