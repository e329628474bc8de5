// ABOUTME: Remote answering contract shared by every answer provider
// ABOUTME: Defines Answer, the Answerer interface, and the NetworkFailure error kind

package answer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/2389/ragchat/internal/store"
)

// ErrNetworkFailure marks every way a remote answer can fail to arrive:
// transport errors, timeouts, non-success statuses and malformed bodies.
var ErrNetworkFailure = errors.New("network failure")

// FallbackAnswer replaces an empty answer text from the service.
const FallbackAnswer = "Xin lỗi, tôi không thể xử lý yêu cầu của bạn lúc này."

// Provider names accepted in configuration.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// Answer is a well-formed reply from the answer service.
type Answer struct {
	Text    string
	Sources []store.Source
}

// Answerer asks the remote service a question within a conversation. It
// either returns a complete Answer or an error wrapping ErrNetworkFailure;
// it never retries.
type Answerer interface {
	Ask(ctx context.Context, message string, conversationID int64) (*Answer, error)
}

// networkFailure wraps cause as a NetworkFailure with a short description.
func networkFailure(what string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrNetworkFailure, what)
	}
	return fmt.Errorf("%w: %s: %v", ErrNetworkFailure, what, cause)
}

// newLimiter paces outgoing requests; zero or negative rps disables pacing.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// wait blocks for the limiter; a cancelled wait is a network failure.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return networkFailure("waiting for rate limiter", err)
	}
	return nil
}
