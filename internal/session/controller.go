// ABOUTME: Session controller driving one chat view through resolve and send
// ABOUTME: Records the user message first, then asks, then records the answer or an apology

package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/ragchat/internal/answer"
	"github.com/2389/ragchat/internal/conversation"
	"github.com/2389/ragchat/internal/store"
)

// ConversationRepository defines what the controller needs from conversation storage
type ConversationRepository interface {
	List(ctx context.Context) ([]*store.Conversation, error)
	Get(ctx context.Context, id int64) (*store.Conversation, error)
	Synthesize(spaceID int64) *store.Conversation
	Create(ctx context.Context, spaceID int64) (*store.Conversation, error)
	Insert(ctx context.Context, conv *store.Conversation) error
	Rename(ctx context.Context, id int64, title string) error
	Delete(ctx context.Context, id int64) error
}

// MessageLog defines what the controller needs from message storage
type MessageLog interface {
	NewMessage(conversationID int64, sender store.Sender, content string, sources []store.Source) *store.Message
	Get(ctx context.Context, conversationID int64) ([]*store.Message, error)
	Append(ctx context.Context, msg *store.Message) error
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Conversations ConversationRepository
	Messages      MessageLog
	Answerer      answer.Answerer

	// Locks serializes sends per conversation. Controllers sharing one
	// KeyedMutex never interleave sends on the same conversation. Nil gives
	// the controller a private one.
	Locks *conversation.KeyedMutex

	// Events receives this view's events. Nil gives the controller a private broadcaster.
	Events *conversation.Broadcaster

	Logger *slog.Logger
}

// Controller is the state machine behind one chat view:
// Resolving -> Idle <-> Sending. No method returns an error; failures become
// view state (banner, apology message, outcome).
type Controller struct {
	repo      ConversationRepository
	log       MessageLog
	answerer  answer.Answerer
	locks     *conversation.KeyedMutex
	events    *conversation.Broadcaster
	ownEvents bool
	viewKey   string
	logger    *slog.Logger

	mu sync.Mutex
	v  view
}

// New creates a Controller. Call Resolve before Send.
func New(d Deps) *Controller {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	locks := d.Locks
	if locks == nil {
		locks = conversation.NewKeyedMutex()
	}
	events, ownEvents := d.Events, false
	if events == nil {
		events, ownEvents = conversation.NewBroadcaster(logger), true
	}
	viewKey := uuid.NewString()

	return &Controller{
		repo:      d.Conversations,
		log:       d.Messages,
		answerer:  d.Answerer,
		locks:     locks,
		events:    events,
		ownEvents: ownEvents,
		viewKey:   viewKey,
		logger:    logger.With("component", "session", "view", viewKey),
		v:         view{state: StateResolving},
	}
}

// Close releases the controller's private broadcaster, if it has one.
func (c *Controller) Close() {
	if c.ownEvents {
		c.events.Close()
	}
}

// Snapshot returns a deep copy of the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v.snapshot()
}

// Subscribe streams this view's events until ctx is done.
func (c *Controller) Subscribe(ctx context.Context) <-chan conversation.Event {
	ch, _ := c.events.Subscribe(ctx, c.viewKey)
	return ch
}

func (c *Controller) publish(ev conversation.Event) {
	c.events.Publish(c.viewKey, ev)
}

// parseID reads a positive integer route parameter.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Resolve makes the conversation named by route active. A known id shows
// its persisted history; an absent or unknown id yields a fresh conversation
// in the requested space that is not written until the first send. Any send
// still pending from before keeps persisting but is no longer displayed.
func (c *Controller) Resolve(ctx context.Context, route Route) {
	c.mu.Lock()
	c.v.generation++
	gen := c.v.generation
	c.v.state = StateResolving
	c.mu.Unlock()

	spaceID, ok := parseID(route.SpaceID)
	if !ok {
		spaceID = store.DefaultSpaceID
	}

	var (
		conv      *store.Conversation
		persisted bool
		history   []*store.Message
		banner    string
	)

	if id, ok := parseID(route.ConversationID); ok {
		found, err := c.repo.Get(ctx, id)
		switch {
		case err == nil:
			conv, persisted = found, true
			history, err = c.log.Get(ctx, id)
			if err != nil {
				c.logger.Error("failed to load history", "conversation_id", id, "error", err)
				banner = InitErrorBanner
				history = nil
			}
		case errors.Is(err, store.ErrNotFound):
			c.logger.Debug("conversation not found, starting a new one", "conversation_id", id)
		default:
			c.logger.Error("failed to resolve conversation", "conversation_id", id, "error", err)
			banner = InitErrorBanner
		}
	}

	if conv == nil {
		conv = c.repo.Synthesize(spaceID)
	}

	c.mu.Lock()
	if gen != c.v.generation {
		c.mu.Unlock()
		return
	}
	c.v = view{
		conv:        conv,
		persisted:   persisted,
		messages:    store.CloneMessages(history),
		chatStarted: len(history) > 0,
		banner:      banner,
		state:       StateIdle,
		generation:  gen,
	}
	c.mu.Unlock()

	c.logger.Debug("resolved",
		"conversation_id", conv.ID,
		"space_id", conv.SpaceID,
		"persisted", persisted,
		"messages", len(history))
	c.publish(conversation.Event{Kind: conversation.EventResolved, ConversationID: conv.ID})
	if banner != "" {
		c.publish(conversation.Event{Kind: conversation.EventError, ConversationID: conv.ID, Error: banner})
	}
}

// Send records text as a user message, asks the answer service, and records
// the answer, or an apology when asking fails. Blank text, a view with no
// active conversation, a view already sending, or a context that is already
// done make Send a no-op.
//
// The whole exchange holds the conversation's lock, so the user message and
// its reply are adjacent in the message log even when several views send on
// one conversation. A reply is recorded only when its user message was.
func (c *Controller) Send(ctx context.Context, text string) Outcome {
	trimmed := strings.TrimSpace(text)

	c.mu.Lock()
	if trimmed == "" || c.v.conv == nil || c.v.sending || c.v.state != StateIdle {
		c.v.outcome = OutcomeIgnored
		c.mu.Unlock()
		return OutcomeIgnored
	}
	gen := c.v.generation
	conv := *c.v.conv
	c.v.sending = true
	c.v.state = StateSending
	c.v.banner = ""
	c.mu.Unlock()

	unlock, err := c.locks.Lock(ctx, conv.ID)
	if err != nil {
		c.logger.Warn("send abandoned while waiting for conversation", "conversation_id", conv.ID, "error", err)
		c.finish(gen, nil, false, "", OutcomeIgnored)
		return OutcomeIgnored
	}
	defer unlock()

	// Once the conversation is held, records are written even if the caller goes away
	persistCtx := context.WithoutCancel(ctx)

	// 1. Show the user message immediately
	userMsg := c.log.NewMessage(conv.ID, store.SenderUser, text, nil)
	c.mu.Lock()
	if gen == c.v.generation {
		c.v.messages = append(c.v.messages, userMsg.Clone())
		c.v.chatStarted = true
	}
	c.mu.Unlock()
	c.publish(conversation.Event{Kind: conversation.EventMessage, ConversationID: conv.ID, Message: userMsg.Clone()})

	// 2. Title the conversation from its first message, creating it on first write
	banner := ""
	if title, err := c.ensureTitled(persistCtx, &conv, trimmed); err != nil {
		c.logger.Error("failed to persist conversation", "conversation_id", conv.ID, "error", err)
		banner = SaveErrorBanner
	} else {
		c.mu.Lock()
		if gen == c.v.generation && c.v.conv != nil && c.v.conv.ID == conv.ID {
			c.v.conv.Title = title
			c.v.persisted = true
		}
		c.mu.Unlock()
	}

	// 3. Record the user message before asking
	userRecorded := true
	if err := c.log.Append(persistCtx, userMsg); err != nil {
		c.logger.Error("failed to record user message", "conversation_id", conv.ID, "error", err)
		banner = SaveErrorBanner
		userRecorded = false
	}

	// 4. Ask
	c.setLoading(gen, conv.ID, true)
	ans, askErr := c.answerer.Ask(ctx, text, conv.ID)

	// 5/6. Record the answer or the apology
	outcome := OutcomeAnswered
	var reply *store.Message
	if askErr != nil {
		c.logger.Warn("answer failed", "conversation_id", conv.ID, "error", askErr)
		outcome = OutcomeFailed
		banner = SendErrorBanner
		reply = c.log.NewMessage(conv.ID, store.SenderAssistant, ApologyMessage, []store.Source{})
	} else {
		content := ans.Text
		if strings.TrimSpace(content) == "" {
			content = answer.FallbackAnswer
		}
		sources := make([]store.Source, len(ans.Sources))
		copy(sources, ans.Sources)
		reply = c.log.NewMessage(conv.ID, store.SenderAssistant, content, sources)
	}

	// A reply is only recorded after its user message
	if !userRecorded {
		c.logger.Warn("reply not recorded, its user message is missing", "conversation_id", conv.ID)
	} else if err := c.log.Append(persistCtx, reply); err != nil {
		c.logger.Error("failed to record reply", "conversation_id", conv.ID, "error", err)
		if banner == "" {
			banner = SaveErrorBanner
		}
	}

	if !c.finish(gen, reply, true, banner, outcome) {
		c.logger.Debug("reply recorded for a view that moved on", "conversation_id", conv.ID, "outcome", outcome)
	}
	return outcome
}

// ensureTitled creates the conversation if it is not stored yet, or renames
// it if it still carries the placeholder. Returns the resulting title.
func (c *Controller) ensureTitled(ctx context.Context, conv *store.Conversation, trimmed string) (string, error) {
	derived := conversation.DeriveTitle(trimmed)

	stored, err := c.repo.Get(ctx, conv.ID)
	if errors.Is(err, store.ErrNotFound) {
		fresh := *conv
		fresh.Title = derived
		err = c.repo.Insert(ctx, &fresh)
		if err == nil {
			return derived, nil
		}
		if !errors.Is(err, store.ErrDuplicateConversation) {
			return "", err
		}
		// Written by someone else in the meantime; fall through to the rename rule
		stored, err = c.repo.Get(ctx, conv.ID)
	}
	if err != nil {
		return "", err
	}

	if stored.Title != conversation.PlaceholderTitle {
		return stored.Title, nil
	}
	if err := c.repo.Rename(ctx, conv.ID, derived); err != nil {
		return "", err
	}
	return derived, nil
}

func (c *Controller) setLoading(gen uint64, conversationID int64, loading bool) {
	c.mu.Lock()
	current := gen == c.v.generation
	if current {
		c.v.loading = loading
	}
	c.mu.Unlock()
	if current {
		c.publish(conversation.Event{Kind: conversation.EventLoading, ConversationID: conversationID, Loading: loading})
	}
}

// finish returns the view to Idle after a send. Returns false when the view
// was re-resolved in the meantime and nothing was applied.
func (c *Controller) finish(gen uint64, reply *store.Message, wasLoading bool, banner string, outcome Outcome) bool {
	c.mu.Lock()
	if gen != c.v.generation {
		c.mu.Unlock()
		return false
	}
	convID := c.v.conv.ID
	if reply != nil {
		c.v.messages = append(c.v.messages, reply.Clone())
	}
	c.v.loading = false
	c.v.sending = false
	c.v.state = StateIdle
	c.v.outcome = outcome
	if banner != "" {
		c.v.banner = banner
	}
	c.mu.Unlock()

	if reply != nil {
		c.publish(conversation.Event{Kind: conversation.EventMessage, ConversationID: convID, Message: reply.Clone()})
	}
	if wasLoading {
		c.publish(conversation.Event{Kind: conversation.EventLoading, ConversationID: convID, Loading: false})
	}
	if banner != "" {
		c.publish(conversation.Event{Kind: conversation.EventError, ConversationID: convID, Error: banner})
	}
	return true
}

// setBanner shows a banner in the current view.
func (c *Controller) setBanner(banner string) {
	c.mu.Lock()
	c.v.banner = banner
	var convID int64
	if c.v.conv != nil {
		convID = c.v.conv.ID
	}
	c.mu.Unlock()
	c.publish(conversation.Event{Kind: conversation.EventError, ConversationID: convID, Error: banner})
}

func (c *Controller) activeConversation() (store.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.v.conv == nil {
		return store.Conversation{}, false
	}
	return *c.v.conv, true
}
