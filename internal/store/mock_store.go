// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without a database file and to inject write failures

package store

import (
	"context"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	conversations map[int64]*Conversation // keyed by conversation ID
	messages      map[int64][]*Message    // keyed by conversation ID

	// Failure injection. When set, the matching operation returns the error
	// without touching state.
	ListErr    error
	GetErr     error
	WriteErr   error
	MessageErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		conversations: make(map[int64]*Conversation),
		messages:      make(map[int64][]*Message),
	}
}

// SetFailures replaces the injected errors under the store lock.
func (m *MockStore) SetFailures(list, get, write, message error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListErr, m.GetErr, m.WriteErr, m.MessageErr = list, get, write, message
}

// ListConversations returns copies of all conversations, newest first.
func (m *MockStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	convs := make([]*Conversation, 0, len(m.conversations))
	for _, c := range m.conversations {
		cp := *c
		convs = append(convs, &cp)
	}
	sortNewestFirst(convs)
	return convs, nil
}

// GetConversation retrieves a conversation by ID.
func (m *MockStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *c
	return &result, nil
}

// CreateConversation stores a new conversation.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return m.WriteErr
	}
	if _, exists := m.conversations[conv.ID]; exists {
		return ErrDuplicateConversation
	}

	// Make a copy to avoid external modification
	c := *conv
	m.conversations[c.ID] = &c
	return nil
}

// UpdateConversation overwrites an existing conversation, keeping CreatedAt.
func (m *MockStore) UpdateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return m.WriteErr
	}
	existing, ok := m.conversations[conv.ID]
	if !ok {
		return ErrNotFound
	}

	c := *conv
	c.CreatedAt = existing.CreatedAt
	m.conversations[c.ID] = &c
	return nil
}

// DeleteConversation removes a conversation record.
func (m *MockStore) DeleteConversation(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return m.WriteErr
	}
	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(m.conversations, id)
	return nil
}

// GetMessages returns a copy of the stored sequence.
func (m *MockStore) GetMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.MessageErr != nil {
		return nil, m.MessageErr
	}
	return CloneMessages(m.messages[conversationID]), nil
}

// ReplaceMessages stores a copy of the given sequence.
func (m *MockStore) ReplaceMessages(ctx context.Context, conversationID int64, msgs []*Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MessageErr != nil {
		return m.MessageErr
	}
	m.messages[conversationID] = CloneMessages(msgs)
	return nil
}

// DeleteMessages drops the stored sequence.
func (m *MockStore) DeleteMessages(ctx context.Context, conversationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MessageErr != nil {
		return m.MessageErr
	}
	delete(m.messages, conversationID)
	return nil
}

// HasMessages reports whether a sequence entry exists for the conversation.
func (m *MockStore) HasMessages(conversationID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.messages[conversationID]
	return ok
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)
