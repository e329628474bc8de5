// Package answerserver is a small answer service speaking the /chat protocol
// the answer package's HTTP client expects. It backs local development and
// end-to-end tests of the chat client.
//
// Routes:
//
//   - POST /chat: {"message", "conversation_id"} -> {"answer", "summary", "sources", "conversation_id"}
//   - GET /health: liveness
//
// Requests with an empty message or an undecodable body get 400. When a
// verifier is configured, /chat requires a bearer JWT (401 otherwise). A
// request repeating a live Idempotency-Key gets 409; the key is released again
// if answering fails so the caller may retry with it.
package answerserver
