// Package store provides durable persistence for conversations and their messages.
//
// # Architecture
//
// The Store interface models two collections:
//
//   - Conversations: one record per conversation ID
//   - Messages by conversation: one ordered sequence per conversation ID
//
// Message sequences are only ever replaced whole (ReplaceMessages), so every
// implementation can make the write atomic: one SQL transaction, one bolt
// Update. Append semantics live one layer up, in the conversation package.
//
// # Implementations
//
//   - BoltStore: go.etcd.io/bbolt file with buckets "conversations" and
//     "messages_by_conversation", JSON values keyed by big-endian ID
//   - SQLiteStore: database/sql over modernc.org/sqlite ("sqlite") or
//     github.com/mattn/go-sqlite3 ("sqlite3"), WAL mode, schema created on open
//   - MockStore: in-memory, copy-on-read, with injectable failures
//
// Open picks an implementation from a driver name:
//
//	s, err := store.Open("bolt", "/var/lib/ragchat/chat.db")
//
// # Error Handling
//
//   - ErrNotFound: requested conversation does not exist
//   - ErrDuplicateConversation: CreateConversation with an ID already in use
//
// Reading the messages of an unknown conversation is not an error; it yields
// an empty sequence.
//
// # Testing
//
// Use NewMockStore() for unit tests and t.TempDir() paths with NewBoltStore
// or NewSQLiteStore for integration tests.
package store
