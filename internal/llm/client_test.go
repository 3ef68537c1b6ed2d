package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKey(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "google"} {
		t.Run(provider, func(t *testing.T) {
			_, err := NewClient(provider, "  ", "")
			assert.ErrorIs(t, err, ErrNoAPIKey)
		})
	}
}

func TestNewClientSelectsProvider(t *testing.T) {
	c, err := NewClient("openai", "sk-test", "")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
	assert.Equal(t, "gpt-4o", c.GetModelName())

	c, err = NewClient("Anthropic", "key", "claude-haiku-4-5")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)
	assert.Equal(t, "claude-haiku-4-5", c.GetModelName())

	_, err = NewClient("ollama", "key", "")
	assert.Error(t, err)
}

func TestNormalizeGoogleModelName(t *testing.T) {
	assert.Equal(t, "models/gemini-2.5-flash", normalizeGoogleModelName(""))
	assert.Equal(t, "models/gemini-2.5-pro", normalizeGoogleModelName("gemini-2.5-pro"))
	assert.Equal(t, "models/custom", normalizeGoogleModelName("models/custom"))
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQID", DataURL(&Image{MimeType: "image/png", Data: []byte{1, 2, 3}}))
	assert.True(t, strings.HasPrefix(DataURL(&Image{Data: []byte{1}}), "data:image/jpeg;base64,"))
}

func TestOpenAIClientSendsImageParts(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"name\":\"pancakes\"}"}}],
			"usage": {"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18}
		}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient("sk-test", "", openaioption.WithBaseURL(server.URL), openaioption.WithMaxRetries(0))
	require.NoError(t, err)

	resp, err := client.CompleteWithRequest(context.Background(), &CompletionRequest{
		SystemPrompt: "You are a nutrition expert.",
		MaxTokens:    1000,
		Messages: []*Message{{
			Role:    "user",
			Content: "What is on the plate?",
			Images:  []*Image{{MimeType: "image/png", Data: []byte{1, 2, 3}}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"name":"pancakes"}`, resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 11, resp.Usage.InputTokens)
	assert.Equal(t, 7, resp.Usage.OutputTokens)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.EqualValues(t, 1000, body["max_tokens"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	image := parts[1].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	assert.Equal(t, "data:image/png;base64,AQID", image["image_url"].(map[string]any)["url"])
}

func TestAnthropicClientCollectsText(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "{\"name\":"}, {"type": "text", "text": "\"soup\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 5, "output_tokens": 3}
		}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient("key", "", anthropicoption.WithBaseURL(server.URL), anthropicoption.WithMaxRetries(0))
	require.NoError(t, err)

	resp, err := client.CompleteWithRequest(context.Background(), &CompletionRequest{
		SystemPrompt: "You are a nutrition expert.",
		Messages: []*Message{{
			Role:    "user",
			Content: "Describe the meal",
			Images:  []*Image{{MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "{\"name\":\n\"soup\"}", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 5, resp.Usage.InputTokens)

	assert.EqualValues(t, defaultAnthropicMaxTokens, body["max_tokens"])
	content := body["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
	assert.Equal(t, "text", content[1].(map[string]any)["type"])
}

func TestCompleteRejectsEmptyRequest(t *testing.T) {
	client, err := NewOpenAIClient("sk-test", "")
	require.NoError(t, err)

	_, err = client.CompleteWithRequest(context.Background(), nil)
	assert.Error(t, err)
	_, err = client.CompleteWithRequest(context.Background(), &CompletionRequest{})
	assert.Error(t, err)
}
