// ABOUTME: View state of a chat session: lifecycle states, send outcomes, and snapshots
// ABOUTME: Snapshot is a deep copy so callers can read it without holding any lock

package session

import (
	"errors"

	"github.com/2389/ragchat/internal/answer"
	"github.com/2389/ragchat/internal/store"
)

// State is the lifecycle state of a chat view.
type State string

const (
	StateResolving State = "resolving"
	StateIdle      State = "idle"
	StateSending   State = "sending"
)

// Outcome reports how the most recent Send ended.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeAnswered Outcome = "answered"
	OutcomeFailed   Outcome = "failed"
	OutcomeIgnored  Outcome = "ignored"
)

// ErrIgnored marks a Send that was a silent no-op: blank text, no active
// conversation, or a send already pending in this view.
var ErrIgnored = errors.New("send ignored")

// Err maps an outcome onto the error taxonomy: ErrIgnored for ignored
// sends, answer.ErrNetworkFailure for failed ones, nil otherwise.
func (o Outcome) Err() error {
	switch o {
	case OutcomeIgnored:
		return ErrIgnored
	case OutcomeFailed:
		return answer.ErrNetworkFailure
	default:
		return nil
	}
}

// User-facing texts.
const (
	// ApologyMessage is persisted as the assistant reply when answering fails.
	ApologyMessage = "Xin lỗi, có lỗi xảy ra khi xử lý yêu cầu của bạn. Vui lòng thử lại sau."

	SendErrorBanner   = "Failed to send message"
	InitErrorBanner   = "Failed to initialize chat"
	SaveErrorBanner   = "Failed to save message"
	DeleteErrorBanner = "Failed to delete conversation"
	RenameErrorBanner = "Failed to rename conversation"
	ListErrorBanner   = "Failed to load conversations"
	CreateErrorBanner = "Failed to create conversation"
)

// Route carries the optional identifiers a view is opened with. Values that
// do not parse as positive integers count as absent.
type Route struct {
	SpaceID        string
	ConversationID string
}

// Snapshot is a point-in-time copy of a chat view.
type Snapshot struct {
	Conversation *store.Conversation // nil before the first Resolve
	Persisted    bool                // Conversation exists in the store
	Messages     []*store.Message    // displayed transcript
	ChatStarted  bool
	Loading      bool
	Error        string // banner; empty when none
	State        State
	LastOutcome  Outcome
}

// view is the mutable state behind a Controller; guarded by Controller.mu.
type view struct {
	conv        *store.Conversation
	persisted   bool
	messages    []*store.Message
	chatStarted bool
	loading     bool
	sending     bool
	banner      string
	state       State
	outcome     Outcome
	generation  uint64
}

func (v *view) snapshot() Snapshot {
	s := Snapshot{
		Persisted:   v.persisted,
		Messages:    store.CloneMessages(v.messages),
		ChatStarted: v.chatStarted,
		Loading:     v.loading,
		Error:       v.banner,
		State:       v.state,
		LastOutcome: v.outcome,
	}
	if v.conv != nil {
		conv := *v.conv
		s.Conversation = &conv
	}
	return s
}
