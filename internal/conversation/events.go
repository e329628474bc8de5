// ABOUTME: View events emitted while a conversation is resolved and messages are exchanged
// ABOUTME: Carried by the Broadcaster to whatever is drawing the chat view

package conversation

import "github.com/2389/ragchat/internal/store"

// EventKind identifies what changed in a chat view.
type EventKind string

const (
	EventResolved EventKind = "resolved" // active conversation changed
	EventLoading  EventKind = "loading"  // remote answer pending or finished
	EventMessage  EventKind = "message"  // message appended to the displayed transcript
	EventError    EventKind = "error"    // error banner set
)

// Event is a single change to a chat view.
type Event struct {
	Kind           EventKind
	ConversationID int64
	Message        *store.Message // EventMessage only
	Loading        bool           // EventLoading only
	Error          string         // EventError only
}
