package translator

import (
	"encoding/json"
)

// Chat roles accepted on the inbound surface.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Request is one chat-completion request, already parsed from the caller's
// JSON by the HTTP layer.
type Request struct {
	// Model is the target model identifier.
	Model string

	// Messages is the ordered conversation history.
	Messages []Message

	// Tools are the caller-advertised tool definitions.
	Tools []ToolDefinition

	// Stream selects streaming delivery.
	Stream bool
}

// Message is one chat message.
type Message struct {
	// Role is one of the Role constants.
	Role string

	// Content is the plain-text content.
	Content string

	// Parts carries multimodal content; when non-empty it replaces Content.
	Parts []ContentPart

	// ToolCalls are the tool calls an assistant message issued.
	ToolCalls []ToolCall

	// ToolCallID links a tool-role message to the call it answers.
	ToolCallID string
}

// Text returns the message's effective text content.
func (m *Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// Content part types.
const (
	PartText  = "text"
	PartImage = "image_url"
)

// ContentPart is one piece of multimodal message content.
type ContentPart struct {
	// Type is PartText or PartImage.
	Type string

	// Text is set for PartText.
	Text string

	// ImageURL is set for PartImage: an http(s) URL or a data URI.
	ImageURL string
}

// ToolDefinition advertises one callable tool to the backend.
type ToolDefinition struct {
	// Name is the tool name.
	Name string `json:"name"`

	// Description tells the model what the tool does.
	Description string `json:"description,omitempty"`

	// Parameters is the JSON-schema parameter document, passed through.
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is one fully assembled tool call.
type ToolCall struct {
	// ID is the call identifier echoed by the tool result.
	ID string

	// Name is the tool name.
	Name string

	// Arguments is the complete JSON argument document.
	Arguments string
}

// Finish reasons on the terminal chunk.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

// Chunk is one streaming delta handed to the caller. Exactly one of the
// content fields is meaningful per chunk; a terminal chunk carries either
// FinishReason or Err.
type Chunk struct {
	// Content is an assistant text delta.
	Content string

	// Reasoning is a reasoning-content delta (reasoning models only).
	Reasoning string

	// ToolCalls are incremental tool-call fragments.
	ToolCalls []ToolCallDelta

	// FinishReason terminates a successful turn.
	FinishReason string

	// Err terminates a failed turn.
	Err error
}

// ToolCallDelta is one incremental tool-call fragment.
type ToolCallDelta struct {
	// Index positions the call among the turn's tool calls.
	Index int

	// ID is set on the fragment that opens the call.
	ID string

	// Name is set on the fragment that opens the call.
	Name string

	// ArgumentsDelta appends to the call's argument document.
	ArgumentsDelta string
}

// Completion is one assembled non-streaming result.
type Completion struct {
	// Content is the full assistant text.
	Content string

	// Reasoning is the full reasoning content, when forwarded.
	Reasoning string

	// ToolCalls are the turn's assembled tool calls.
	ToolCalls []ToolCall

	// FinishReason is FinishStop or FinishToolCalls.
	FinishReason string
}
