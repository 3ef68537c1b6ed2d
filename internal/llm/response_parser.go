package llm

import (
	"encoding/json"
	"strings"
)

// CleanLLMJSONResponse removes common formatting from LLM JSON responses.
// It handles:
// - Markdown code blocks (```json or ```)
// - XML-style tags (<tag>content</tag>)
// - Leading/trailing whitespace
func CleanLLMJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```JSON")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	response = extractFromXMLTags(response)

	return strings.TrimSpace(response)
}

// extractFromXMLTags removes the outermost XML-style tags from content.
// "<tag attr="value">content</tag>" becomes "content".
func extractFromXMLTags(content string) string {
	if !strings.HasPrefix(content, "<") {
		return content
	}

	openEnd := strings.Index(content, ">")
	if openEnd == -1 {
		return content
	}

	tagName := content[1:openEnd]
	if idx := strings.IndexByte(tagName, ' '); idx >= 0 {
		tagName = tagName[:idx]
	}
	if tagName == "" {
		return content
	}

	closeStart := strings.LastIndex(content, "</"+tagName+">")
	if closeStart <= openEnd {
		return content
	}
	return content[openEnd+1 : closeStart]
}

// ExtractJSON decodes the JSON object contained in an LLM reply into target.
// It first tries the cleaned reply as a whole, then the span from the first
// '{' to the last '}' so prose around the object is ignored.
func ExtractJSON(response string, target any) error {
	cleaned := CleanLLMJSONResponse(response)
	if err := json.Unmarshal([]byte(cleaned), target); err == nil {
		return nil
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(response[start:end+1]), target); err == nil {
			return nil
		}
	}

	return &JSONParseError{Response: response, Message: "could not parse JSON object"}
}

// JSONParseError represents an error that occurred while parsing LLM JSON response.
type JSONParseError struct {
	Response string
	Message  string
}

func (e *JSONParseError) Error() string {
	return e.Message + ": " + TruncateForError(e.Response, 200)
}

// TruncateForError truncates a string for error messages.
func TruncateForError(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
