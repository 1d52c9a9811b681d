package types

import (
	"encoding/json"
	"fmt"

	"ganymede-hq/ganymede/pkg/translator"
)

// ChatCompletionRequest is the request body for /v1/chat/completions.
type ChatCompletionRequest struct {
	// Model is the target model identifier.
	Model string `json:"model"`

	// Messages is the ordered conversation history.
	Messages []Message `json:"messages"`

	// Stream enables SSE streaming.
	Stream bool `json:"stream,omitempty"`

	// Tools is the list of callable tools.
	Tools []Tool `json:"tools,omitempty"`

	// MaxTokens caps the completion length. Accepted for SDK compatibility;
	// the backend applies its own limits.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Temperature is accepted for SDK compatibility.
	Temperature *float64 `json:"temperature,omitempty"`

	// User is an opaque end-user identifier.
	User string `json:"user,omitempty"`
}

// Message is one chat message. Content is either a string or an array of
// content parts for multimodal input.
type Message struct {
	// Role is "system", "user", "assistant", or "tool".
	Role string `json:"role"`

	// Content is a string or []ContentPart.
	Content any `json:"content"`

	// ToolCalls are the calls an assistant message issued.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ContentPart is one piece of multimodal content.
type ContentPart struct {
	// Type is "text" or "image_url".
	Type string `json:"type"`

	// Text is set for text parts.
	Text string `json:"text,omitempty"`

	// ImageURL is set for image parts.
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image by URL or data URI.
type ImageURL struct {
	// URL is an http(s) URL or a data: URI.
	URL string `json:"url"`
}

// Tool is one callable tool definition.
type Tool struct {
	// Type is always "function".
	Type string `json:"type"`

	// Function describes the callable.
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes one function tool.
type FunctionDefinition struct {
	// Name is the function name.
	Name string `json:"name"`

	// Description explains what the function does.
	Description string `json:"description,omitempty"`

	// Parameters is a JSON-schema document.
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is one issued tool call.
type ToolCall struct {
	// ID identifies the call.
	ID string `json:"id"`

	// Type is always "function".
	Type string `json:"type"`

	// Function holds the name and arguments.
	Function FunctionCall `json:"function"`
}

// FunctionCall is a function name plus its JSON argument string.
type FunctionCall struct {
	// Name is the function name.
	Name string `json:"name"`

	// Arguments is the JSON argument document.
	Arguments string `json:"arguments"`
}

// Validate checks required fields and role values.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must contain at least one message")
	}
	for i := range r.Messages {
		switch r.Messages[i].Role {
		case "system", "user", "assistant", "tool":
		default:
			return fmt.Errorf("messages[%d].role %q is not one of system, user, assistant, tool",
				i, r.Messages[i].Role)
		}
	}
	return nil
}

// ToTranslator converts the wire request into the translator's neutral
// form, flattening string-or-parts content.
func (r *ChatCompletionRequest) ToTranslator() (*translator.Request, error) {
	out := &translator.Request{
		Model:  r.Model,
		Stream: r.Stream,
	}

	for i := range r.Messages {
		msg, err := r.Messages[i].toTranslator(i)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, msg)
	}

	for _, tool := range r.Tools {
		out.Tools = append(out.Tools, translator.ToolDefinition{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  tool.Function.Parameters,
		})
	}
	return out, nil
}

func (m *Message) toTranslator(index int) (translator.Message, error) {
	out := translator.Message{
		Role:       m.Role,
		ToolCallID: m.ToolCallID,
	}
	for _, call := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, translator.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	switch content := m.Content.(type) {
	case nil:
		// Assistant messages carrying only tool calls have no content.

	case string:
		out.Content = content

	case []any:
		for _, raw := range content {
			part, err := decodePart(raw)
			if err != nil {
				return out, fmt.Errorf("messages[%d]: %w", index, err)
			}
			out.Parts = append(out.Parts, part)
		}

	default:
		return out, fmt.Errorf("messages[%d].content must be a string or an array of parts", index)
	}
	return out, nil
}

func decodePart(raw any) (translator.ContentPart, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return translator.ContentPart{}, fmt.Errorf("content part must be an object")
	}

	switch obj["type"] {
	case "text":
		text, _ := obj["text"].(string)
		return translator.ContentPart{Type: translator.PartText, Text: text}, nil

	case "image_url":
		img, _ := obj["image_url"].(map[string]any)
		url, _ := img["url"].(string)
		if url == "" {
			return translator.ContentPart{}, fmt.Errorf("image_url part has no url")
		}
		return translator.ContentPart{Type: translator.PartImage, ImageURL: url}, nil

	default:
		return translator.ContentPart{}, fmt.Errorf("unknown content part type %v", obj["type"])
	}
}
