package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoAPIKey is returned when a provider client is requested without a key.
var ErrNoAPIKey = errors.New("llm: no API key configured")

// Image is an inline image attachment of a user message.
type Image struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Message represents a chat message
type Message struct {
	Role    string   `json:"role"` // "user" or "assistant"
	Content string   `json:"content"`
	Images  []*Image `json:"images,omitempty"`
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	Messages     []*Message `json:"messages"`
	SystemPrompt string     `json:"system_prompt,omitempty"`
	Temperature  float64    `json:"temperature"`
	MaxTokens    int        `json:"max_tokens,omitempty"`
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *Usage `json:"usage,omitempty"`
}

// Client is the interface for LLM clients
type Client interface {
	// CompleteWithRequest sends a completion request and returns the response
	CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	// Complete is a simplified version for single prompt
	Complete(ctx context.Context, prompt string) (string, error)
	// GetModelName returns the model name
	GetModelName() string
}

// NewClient creates a client for the named provider ("openai", "anthropic"
// or "google"). An empty model selects the provider default.
func NewClient(provider, apiKey, model string) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%s: %w", provider, ErrNoAPIKey)
	}

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		return NewOpenAIClient(apiKey, model)
	case "anthropic":
		return NewAnthropicClient(apiKey, model)
	case "google", "gemini":
		return NewGoogleAIClient(apiKey, model)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}

// completePrompt implements Client.Complete on top of CompleteWithRequest.
func completePrompt(ctx context.Context, c Client, prompt string) (string, error) {
	resp, err := c.CompleteWithRequest(ctx, &CompletionRequest{
		Messages: []*Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func validateRequest(provider string, req *CompletionRequest) error {
	if req == nil {
		return fmt.Errorf("%s completion request cannot be nil", provider)
	}
	for _, msg := range req.Messages {
		if msg != nil {
			return nil
		}
	}
	return fmt.Errorf("%s completion requires at least one message", provider)
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "assistant", "model":
		return "assistant"
	default:
		return "user"
	}
}
