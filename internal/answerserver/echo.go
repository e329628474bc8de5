// ABOUTME: Default Responder that answers by restating the question
// ABOUTME: Returns two canned citations so clients can exercise source rendering

package answerserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/2389/ragchat/internal/answer"
	"github.com/2389/ragchat/internal/store"
)

// EchoResponder answers every question with a restatement and two citations.
type EchoResponder struct{}

// Respond implements Responder.
func (EchoResponder) Respond(ctx context.Context, req *answer.ChatRequest) (*answer.ChatResponse, error) {
	top, second := 0.92, 0.71
	resp := &answer.ChatResponse{
		Answer:  fmt.Sprintf("You asked: %q. This is a canned answer from the local answer service.", req.Message),
		Summary: req.Message,
		Sources: []store.Source{
			{Title: "https://example.edu/faq", Content: "Frequently asked questions", Score: &top},
			{Name: "student-handbook.pdf", Content: "Student handbook", Score: &second},
		},
	}
	if req.ConversationID != nil {
		resp.ConversationID = json.RawMessage(strconv.FormatInt(*req.ConversationID, 10))
	}
	return resp, nil
}
