// ABOUTME: Answerer backed by an OpenAI-compatible chat completion API
// ABOUTME: Uses sashabaranov/go-openai; answers carry no sources

package answer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// DefaultSystemPrompt frames the assistant for the chat client.
const DefaultSystemPrompt = "You are a helpful assistant answering questions for a university information desk. Answer concisely in the language of the question."

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	SystemPrompt      string
	Timeout           time.Duration
	RequestsPerSecond float64

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// OpenAIClient is an Answerer using chat completions.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	prompt  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenAIClient creates an OpenAIClient. Pass nil logger for default.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		prompt:  prompt,
		timeout: timeout,
		limiter: newLimiter(cfg.RequestsPerSecond),
		logger:  logger.With("component", "answer", "provider", ProviderOpenAI),
	}, nil
}

// Ask sends the question as a single-turn chat completion.
func (c *OpenAIClient) Ask(ctx context.Context, message string, conversationID int64) (*Answer, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	}
	if conversationID != 0 {
		req.User = "conversation-" + strconv.FormatInt(conversationID, 10)
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, networkFailure("creating chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, networkFailure("no choices returned", nil)
	}

	c.logger.Debug("completion received",
		"conversation_id", conversationID,
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens)

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		text = FallbackAnswer
	}
	return &Answer{Text: text}, nil
}

var _ Answerer = (*OpenAIClient)(nil)
