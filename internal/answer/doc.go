// Package answer is the client side of the remote answer service.
//
// # Contract
//
// An Answerer takes a user message and the conversation it belongs to and
// returns an Answer (text plus citations) or an error wrapping
// ErrNetworkFailure. There is no partial success and no retry: one failed
// call is one failure for the caller to handle.
//
// # Providers
//
//   - HTTPClient: POST {base_url}/chat with {"message", "conversation_id"}.
//     Each request carries a fresh Idempotency-Key and, when a signer is
//     configured, a short-lived bearer JWT.
//   - OpenAIClient: a single-turn chat completion through go-openai. Answers
//     from this provider carry no sources.
//
// Both providers pace requests with golang.org/x/time/rate when
// RequestsPerSecond is positive, bound each call with a timeout, and replace
// an empty answer with FallbackAnswer.
package answer
