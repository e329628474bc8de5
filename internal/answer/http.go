// ABOUTME: HTTP+JSON Answerer posting questions to an answer service
// ABOUTME: Adds idempotency keys, optional bearer tokens, pacing, and a per-request timeout

package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/2389/ragchat/internal/auth"
)

const (
	// DefaultTimeout bounds a single Ask when none is configured.
	DefaultTimeout = 60 * time.Second

	// tokenTTL is the lifetime of each minted bearer token.
	tokenTTL = time.Minute

	// maxErrorBody caps how much of a failed response is quoted in errors.
	maxErrorBody = 512
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64

	// Signer, when set, mints a bearer token for Subject on every request.
	Signer  auth.TokenSigner
	Subject string

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// HTTPClient is an Answerer speaking the /chat JSON protocol.
type HTTPClient struct {
	endpoint string
	timeout  time.Duration
	signer   auth.TokenSigner
	subject  string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewHTTPClient creates an HTTPClient. Pass nil logger for default.
func NewHTTPClient(cfg HTTPConfig, logger *slog.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("answer service base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "ragchat"
	}

	return &HTTPClient{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + ChatPath,
		timeout:  timeout,
		signer:   cfg.Signer,
		subject:  subject,
		client:   client,
		limiter:  newLimiter(cfg.RequestsPerSecond),
		logger:   logger.With("component", "answer", "provider", ProviderHTTP),
	}, nil
}

// Ask posts the question and decodes the answer. A zero conversationID is sent as null.
func (c *HTTPClient) Ask(ctx context.Context, message string, conversationID int64) (*Answer, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := ChatRequest{Message: message}
	if conversationID != 0 {
		body.ConversationID = &conversationID
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, networkFailure("encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, networkFailure("building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	idempotencyKey := uuid.NewString()
	req.Header.Set(IdempotencyHeader, idempotencyKey)

	if c.signer != nil {
		token, err := c.signer.Generate(c.subject, tokenTTL)
		if err != nil {
			return nil, networkFailure("signing request", err)
		}
		req.Header.Set("Authorization", auth.BearerHeader(token))
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, networkFailure("sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, networkFailure(fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var decoded ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, networkFailure("decoding response", err)
	}

	c.logger.Debug("answer received",
		"conversation_id", conversationID,
		"idempotency_key", idempotencyKey,
		"sources", len(decoded.Sources),
		"duration", time.Since(start))

	text := decoded.Answer
	if strings.TrimSpace(text) == "" {
		text = FallbackAnswer
	}
	return &Answer{Text: text, Sources: decoded.Sources}, nil
}

var _ Answerer = (*HTTPClient)(nil)
