package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIClient implements the Client interface using the Chat Completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient constructs a client that talks directly to the OpenAI API.
func NewOpenAIClient(apiKey, modelName string, opts ...option.RequestOption) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: %w", ErrNoAPIKey)
	}

	model := strings.TrimSpace(modelName)
	if model == "" {
		model = defaultOpenAIModel
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *OpenAIClient) GetModelName() string {
	return c.model
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return completePrompt(ctx, c, prompt)
}

func (c *OpenAIClient) CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if err := validateRequest("openai", req); err != nil {
		return nil, err
	}

	resp, err := c.client.Chat.Completions.New(ctx, c.buildChatParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &CompletionResponse{StopReason: "stop"}, nil
	}

	first := resp.Choices[0]
	return &CompletionResponse{
		Content:    first.Message.Content,
		StopReason: first.FinishReason,
		Usage: &Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (c *OpenAIClient) buildChatParams(req *CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		messages = append(messages, openai.SystemMessage(sys))
	}

	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		if normalizeRole(msg.Role) == "assistant" {
			messages = append(messages, openai.AssistantMessage(msg.Content))
			continue
		}
		if len(msg.Images) == 0 {
			messages = append(messages, openai.UserMessage(msg.Content))
			continue
		}

		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Images)+1)
		if msg.Content != "" {
			parts = append(parts, openai.TextContentPart(msg.Content))
		}
		for _, img := range msg.Images {
			if img == nil || len(img.Data) == 0 {
				continue
			}
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: DataURL(img),
			}))
		}
		messages = append(messages, openai.UserMessage(parts))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params
}

// DataURL encodes an image as a base64 data URL.
func DataURL(img *Image) string {
	mime := img.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
