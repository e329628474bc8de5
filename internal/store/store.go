// ABOUTME: Store interface and data types for ragchat persistence
// ABOUTME: Defines Conversation, Message, Source records and the two-collection Store contract

package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when creating a conversation whose ID is already taken
var ErrDuplicateConversation = errors.New("conversation already exists")

// Sender identifies who authored a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// DefaultSpaceID is the space a conversation lands in when none is requested
const DefaultSpaceID int64 = 1

// Conversation is a named thread of messages scoped to a space
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	SpaceID   int64     `json:"space_id"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Source is a citation attached to an assistant message. Fields are kept
// exactly as the answer service returned them.
type Source struct {
	Title   string   `json:"title,omitempty"`
	Name    string   `json:"name,omitempty"`
	Content string   `json:"content,omitempty"`
	Score   *float64 `json:"score,omitempty"`
}

// Label returns the display label for the source at the given position.
func (s Source) Label(index int) string {
	if s.Title != "" {
		return s.Title
	}
	if s.Name != "" {
		return s.Name
	}
	return "Document " + strconv.Itoa(index+1)
}

// Message is one turn in a conversation
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	Sources        []Source  `json:"sources,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	if m.Sources != nil {
		c.Sources = make([]Source, len(m.Sources))
		for i, src := range m.Sources {
			c.Sources[i] = src
			if src.Score != nil {
				score := *src.Score
				c.Sources[i].Score = &score
			}
		}
	}
	return &c
}

// CloneMessages deep-copies a message sequence. A nil input yields an empty slice.
func CloneMessages(msgs []*Message) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out
}

// Store defines the durable persistence contract: a Conversations collection
// and a messages-by-conversation index.
type Store interface {
	// Conversations
	ListConversations(ctx context.Context) ([]*Conversation, error)
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	CreateConversation(ctx context.Context, conv *Conversation) error
	UpdateConversation(ctx context.Context, conv *Conversation) error
	DeleteConversation(ctx context.Context, id int64) error

	// Messages by conversation. ReplaceMessages swaps the whole sequence
	// atomically; readers never observe a partial write.
	GetMessages(ctx context.Context, conversationID int64) ([]*Message, error)
	ReplaceMessages(ctx context.Context, conversationID int64, msgs []*Message) error
	DeleteMessages(ctx context.Context, conversationID int64) error

	// Close releases any resources held by the store
	Close() error
}

// sortNewestFirst orders conversations by creation time, newest first,
// breaking ties by the larger ID.
func sortNewestFirst(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if !convs[i].CreatedAt.Equal(convs[j].CreatedAt) {
			return convs[i].CreatedAt.After(convs[j].CreatedAt)
		}
		return convs[i].ID > convs[j].ID
	})
}
