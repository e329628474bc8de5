// ABOUTME: JSON wire format of the answer service's /chat endpoint
// ABOUTME: Shared by the HTTP client and the local answer server

package answer

import (
	"encoding/json"

	"github.com/2389/ragchat/internal/store"
)

// ChatPath is the endpoint the HTTP provider posts questions to.
const ChatPath = "/chat"

// IdempotencyHeader carries a per-request key the server may use to refuse replays.
const IdempotencyHeader = "Idempotency-Key"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id"`
}

// ChatResponse is the success body of POST /chat. Answer may be empty and
// Sources absent. ConversationID is echoed in whatever shape the service
// chose and is not interpreted.
type ChatResponse struct {
	Answer         string          `json:"answer"`
	Summary        string          `json:"summary,omitempty"`
	Sources        []store.Source  `json:"sources,omitempty"`
	ConversationID json.RawMessage `json:"conversation_id,omitempty"`
}

// ErrorResponse is the body of a non-success reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
