// Package session drives a chat view: which conversation is active, what
// transcript is shown, and what happens when the user sends a message.
//
// # States
//
//	Resolving -> Idle <-> Sending
//
// Resolve (on open and on every route change) picks the active conversation.
// A known id shows its persisted history. An absent or unknown id yields a
// synthesized conversation that is only written to the store when the first
// message is sent, so empty conversations are never persisted.
//
// # Send
//
//  1. The user message is shown immediately.
//  2. The conversation is created, or renamed from its placeholder, with a
//     title derived from the first message. Later sends never retitle.
//  3. The user message is appended to the message log.
//  4. The answer service is asked while Loading is set.
//  5. The answer, or ApologyMessage on failure, is appended and shown.
//
// Each completed send adds exactly one user and one assistant message. The
// exchange holds a per-conversation lock shared by controllers built on the
// same conversation.KeyedMutex. A reply that arrives after the view moved to
// another conversation is still recorded but not shown.
//
// # Errors
//
// Controller methods never return errors. Unknown conversations fall back to
// synthesis, failed answers become an apology plus the SendErrorBanner, and
// blank input is silently ignored (OutcomeIgnored).
package session
