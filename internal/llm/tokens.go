package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	systemMessageOverhead = 2
	perMessageOverhead    = 4
	// Flat cost of one image part at low detail.
	imageTokenEstimate = 85
)

var (
	encoderMu    sync.Mutex
	encoderCache = map[string]*tiktoken.Tiktoken{}
)

// EstimateTokenCount returns the token count of content for the given model.
// Models without a known encoding use cl100k_base; when no encoding can be
// loaded at all the estimate falls back to four characters per token.
func EstimateTokenCount(model, content string) int {
	if content == "" {
		return 0
	}
	if encoder := encodingForModel(model); encoder != nil {
		return len(encoder.Encode(content, nil, nil))
	}
	return charsToTokens(utf8.RuneCountInString(content))
}

// EstimateRequestTokens estimates the prompt size of req.
func EstimateRequestTokens(model string, req *CompletionRequest) int {
	if req == nil {
		return 0
	}

	total := 0
	if req.SystemPrompt != "" {
		total += EstimateTokenCount(model, req.SystemPrompt) + systemMessageOverhead
	}
	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		total += EstimateTokenCount(model, msg.Content) + perMessageOverhead
		total += len(msg.Images) * imageTokenEstimate
	}
	return total
}

func encodingForModel(model string) *tiktoken.Tiktoken {
	encoderMu.Lock()
	defer encoderMu.Unlock()

	if encoder, ok := encoderCache[model]; ok {
		return encoder
	}

	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			encoder = nil
		}
	}
	encoderCache[model] = encoder
	return encoder
}

func charsToTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + 3) / 4
}
