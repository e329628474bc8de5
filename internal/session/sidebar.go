// ABOUTME: Conversation list operations of a chat view: list, new, rename, delete
// ABOUTME: Delete moves the view away from a deleted active conversation

package session

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/2389/ragchat/internal/store"
)

// Conversations returns every stored conversation, newest first. On failure
// the banner is set and nil is returned.
func (c *Controller) Conversations(ctx context.Context) []*store.Conversation {
	convs, err := c.repo.List(ctx)
	if err != nil {
		c.logger.Error("failed to list conversations", "error", err)
		c.setBanner(ListErrorBanner)
		return nil
	}
	return convs
}

// NewConversation stores a placeholder conversation and makes it active. It
// lands in the current view's space, else the newest conversation's space,
// else the default space. Returns nil when it could not be created.
func (c *Controller) NewConversation(ctx context.Context) *store.Conversation {
	spaceID := store.DefaultSpaceID
	if active, ok := c.activeConversation(); ok {
		spaceID = active.SpaceID
	} else if convs, err := c.repo.List(ctx); err == nil && len(convs) > 0 {
		spaceID = convs[0].SpaceID
	}

	conv, err := c.repo.Create(ctx, spaceID)
	if err != nil {
		c.logger.Error("failed to create conversation", "error", err)
		c.setBanner(CreateErrorBanner)
		return nil
	}

	c.Resolve(ctx, routeFor(conv))
	return conv
}

// Rename retitles a conversation. Blank titles are ignored. Reports whether
// the conversation now carries the title.
func (c *Controller) Rename(ctx context.Context, id int64, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}

	if err := c.repo.Rename(ctx, id, title); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Error("failed to rename conversation", "conversation_id", id, "error", err)
			c.setBanner(RenameErrorBanner)
		}
		return false
	}

	c.mu.Lock()
	if c.v.conv != nil && c.v.conv.ID == id {
		c.v.conv.Title = title
	}
	c.mu.Unlock()
	return true
}

// Delete removes a conversation and its messages. It waits for any send on
// that conversation to finish first. If the conversation was active, the
// view re-resolves to a fresh conversation in the space of the newest
// remaining one (or the default space). Reports whether anything was deleted.
func (c *Controller) Delete(ctx context.Context, id int64) bool {
	unlock, err := c.locks.Lock(ctx, id)
	if err != nil {
		c.logger.Warn("delete abandoned while waiting for conversation", "conversation_id", id, "error", err)
		return false
	}
	err = c.repo.Delete(ctx, id)
	unlock()

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.logger.Debug("delete of unknown conversation", "conversation_id", id)
			return false
		}
		c.logger.Error("failed to delete conversation", "conversation_id", id, "error", err)
		c.setBanner(DeleteErrorBanner)
		return false
	}
	c.logger.Info("conversation deleted", "conversation_id", id)

	active, ok := c.activeConversation()
	if !ok || active.ID != id {
		return true
	}

	route := Route{}
	if remaining, err := c.repo.List(ctx); err == nil && len(remaining) > 0 {
		route.SpaceID = strconv.FormatInt(remaining[0].SpaceID, 10)
	}
	c.Resolve(ctx, route)
	return true
}

func routeFor(conv *store.Conversation) Route {
	return Route{
		SpaceID:        strconv.FormatInt(conv.SpaceID, 10),
		ConversationID: strconv.FormatInt(conv.ID, 10),
	}
}
