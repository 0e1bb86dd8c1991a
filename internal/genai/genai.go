// Package genai wraps the OpenAI chat completion API behind a small client
// used for lead field extraction and reply generation.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// ErrNoChoicesReturned indicates the API responded without any completion
// choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChat adapts the real OpenAI client to chatService.
type openaiChat struct {
	client openai.Client
}

func (o openaiChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option configures Opts.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat  chatService
	model string
}

// NewClient creates a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable and the model to OPENAI_MODEL.
func NewClient(options ...Option) (*Client, error) {
	opts := Opts{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  os.Getenv("OPENAI_MODEL"),
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	slog.Debug("GenAI.NewClient: created client", "model", opts.Model)
	cli := openai.NewClient(option.WithAPIKey(opts.APIKey))
	return &Client{chat: openaiChat{client: cli}, model: opts.Model}, nil
}

// Generate runs one system+user completion and returns the text of the first
// choice.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("GenAI.Generate: API call failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	content := resp.Choices[0].Message.Content
	slog.Debug("GenAI.Generate: received completion", "content_length", len(content))
	return content, nil
}

// ExtractJSONObject trims a completion down to the first JSON object it
// contains. Models sometimes wrap JSON in code fences or prose; callers that
// expect an object should go through this before unmarshaling.
func ExtractJSONObject(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return content[start : end+1], true
}
