// ABOUTME: BoltDB implementation of the Store interface using go.etcd.io/bbolt
// ABOUTME: Keeps conversations and messages-by-conversation in two buckets of JSON values

package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketConversations = []byte("conversations")
	bucketMessages      = []byte("messages_by_conversation")
)

// BoltStore implements the Store interface on a single bbolt file.
// Each conversation ID maps to one JSON record in the conversations bucket
// and one JSON array in the messages_by_conversation bucket.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// NewBoltStore opens (or creates) the bolt database at path.
// Parent directories are created if needed.
func NewBoltStore(path string) (*BoltStore, error) {
	logger := slog.Default().With("component", "store")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketConversations); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMessages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	logger.Info("bolt store initialized", "path", path)
	return &BoltStore{db: db, logger: logger}, nil
}

// Close closes the database file
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// idKey encodes an ID big-endian so bucket iteration follows numeric order
func idKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// CreateConversation stores a new conversation.
// Returns ErrDuplicateConversation if the ID is already taken.
func (s *BoltStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encoding conversation: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		key := idKey(conv.ID)
		if b.Get(key) != nil {
			return ErrDuplicateConversation
		}
		return b.Put(key, data)
	})
	if err != nil {
		if err == ErrDuplicateConversation {
			return err
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID)
	return nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *BoltStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	var conv *Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketConversations).Get(idKey(id))
		if v == nil {
			return ErrNotFound
		}
		conv = &Conversation{}
		return json.Unmarshal(v, conv)
	})
	if err == ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation: %w", err)
	}
	return conv, nil
}

// UpdateConversation rewrites an existing conversation, keeping its original CreatedAt.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *BoltStore) UpdateConversation(ctx context.Context, conv *Conversation) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		key := idKey(conv.ID)
		v := b.Get(key)
		if v == nil {
			return ErrNotFound
		}

		var existing Conversation
		if err := json.Unmarshal(v, &existing); err != nil {
			return err
		}
		updated := *conv
		updated.CreatedAt = existing.CreatedAt

		data, err := json.Marshal(&updated)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
	if err == ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}

	s.logger.Debug("updated conversation", "id", conv.ID)
	return nil
}

// DeleteConversation removes a conversation record. Its messages are left to DeleteMessages.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *BoltStore) DeleteConversation(ctx context.Context, id int64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		key := idKey(id)
		if b.Get(key) == nil {
			return ErrNotFound
		}
		return b.Delete(key)
	})
	if err == ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	s.logger.Debug("deleted conversation", "id", id)
	return nil
}

// ListConversations returns all conversations, newest first.
// Malformed records are skipped rather than failing the whole listing.
func (s *BoltStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	convs := []*Conversation{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversations).ForEach(func(k, v []byte) error {
			var conv Conversation
			if err := json.Unmarshal(v, &conv); err != nil {
				s.logger.Warn("skipping malformed conversation record", "key", binary.BigEndian.Uint64(k), "error", err)
				return nil
			}
			convs = append(convs, &conv)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	sortNewestFirst(convs)
	return convs, nil
}

// GetMessages returns the message sequence for a conversation in append order.
// An unknown conversation yields an empty sequence.
func (s *BoltStore) GetMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	msgs := []*Message{}
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMessages).Get(idKey(conversationID))
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, &msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return msgs, nil
}

// ReplaceMessages writes the whole sequence for a conversation in one bolt transaction.
func (s *BoltStore) ReplaceMessages(ctx context.Context, conversationID int64, msgs []*Message) error {
	if msgs == nil {
		msgs = []*Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMessages).Put(idKey(conversationID), data)
	})
	if err != nil {
		return fmt.Errorf("writing messages: %w", err)
	}

	s.logger.Debug("replaced messages", "conversation_id", conversationID, "count", len(msgs))
	return nil
}

// DeleteMessages removes the sequence for a conversation. Deleting an absent sequence is not an error.
func (s *BoltStore) DeleteMessages(ctx context.Context, conversationID int64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMessages).Delete(idKey(conversationID))
	})
	if err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	return nil
}

// Ensure BoltStore implements Store interface
var _ Store = (*BoltStore)(nil)
