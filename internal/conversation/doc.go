// Package conversation manages conversations and their message logs.
//
// # Repository
//
// Repository is CRUD over the Conversations collection of a store.Store:
//
//	repo := conversation.NewRepository(st, ids.NewSequence(), logger)
//	conv := repo.Synthesize(spaceID) // fresh id, not persisted
//	err := repo.Insert(ctx, conv)     // first write
//
// New conversations carry PlaceholderTitle until the first user message is
// sent; DeriveTitle produces the replacement (at most MaxTitleLength
// characters plus "..." when cut). Delete also drops the message sequence.
//
// # Message Log
//
// MessageLog is the append-only message sequence per conversation. Append
// reads the stored sequence, adds the message at the end, and writes the
// whole sequence back with ReplaceMessages, holding a per-conversation lock
// for the duration so concurrent appends never lose a write.
//
// # Locks
//
// KeyedMutex is a context-aware mutex per conversation id. Entries exist only
// while held or awaited.
//
// # Events
//
// Broadcaster fans view Events (resolved, loading, message, error) out to
// subscribers of a view key. Publishing is non-blocking; a slow subscriber
// loses events rather than stalling the sender.
package conversation
