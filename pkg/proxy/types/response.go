package types

// ChatCompletionResponse is the non-streaming response body.
type ChatCompletionResponse struct {
	// ID identifies the completion.
	ID string `json:"id"`

	// Object is always "chat.completion".
	Object string `json:"object"`

	// Created is the Unix creation time.
	Created int64 `json:"created"`

	// Model is the model that produced the completion.
	Model string `json:"model"`

	// Choices holds the single completion choice.
	Choices []Choice `json:"choices"`

	// Usage carries token estimates.
	Usage Usage `json:"usage"`
}

// Choice is one completion choice.
type Choice struct {
	// Index is always 0.
	Index int `json:"index"`

	// Message is the assembled assistant message.
	Message ResponseMessage `json:"message"`

	// FinishReason is "stop" or "tool_calls".
	FinishReason string `json:"finish_reason"`
}

// ResponseMessage is the assistant message in a non-streaming response.
type ResponseMessage struct {
	// Role is always "assistant".
	Role string `json:"role"`

	// Content is the full text content.
	Content string `json:"content"`

	// ReasoningContent is the full reasoning content, when forwarded.
	ReasoningContent string `json:"reasoning_content,omitempty"`

	// ToolCalls are the turn's assembled tool calls.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Usage carries token counts. The backend reports none, so the gateway
// estimates from character length.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionStreamChunk is one SSE chunk of a streaming response.
type ChatCompletionStreamChunk struct {
	// ID identifies the completion; stable across the stream.
	ID string `json:"id"`

	// Object is always "chat.completion.chunk".
	Object string `json:"object"`

	// Created is the Unix creation time.
	Created int64 `json:"created"`

	// Model is the model producing the completion.
	Model string `json:"model"`

	// Choices holds the single streaming choice.
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is one choice in a streaming chunk.
type StreamChoice struct {
	// Index is always 0.
	Index int `json:"index"`

	// Delta is the incremental content.
	Delta Delta `json:"delta"`

	// FinishReason is set only on the terminal chunk.
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental content of one streaming chunk.
type Delta struct {
	// Role is "assistant" on the first chunk only.
	Role string `json:"role,omitempty"`

	// Content is an incremental piece of text.
	Content string `json:"content,omitempty"`

	// ReasoningContent is an incremental piece of reasoning text.
	ReasoningContent string `json:"reasoning_content,omitempty"`

	// ToolCalls carries incremental tool-call fragments.
	ToolCalls []StreamToolCall `json:"tool_calls,omitempty"`
}

// StreamToolCall is one incremental tool-call fragment.
type StreamToolCall struct {
	// Index positions the call among the turn's tool calls.
	Index int `json:"index"`

	// ID is set on the opening fragment.
	ID string `json:"id,omitempty"`

	// Type is "function" on the opening fragment.
	Type string `json:"type,omitempty"`

	// Function carries the name (opening fragment) and argument deltas.
	Function FunctionCall `json:"function"`
}

// ModelList is the /v1/models response body.
type ModelList struct {
	// Object is always "list".
	Object string `json:"object"`

	// Data holds the model entries.
	Data []ModelEntry `json:"data"`
}

// ModelEntry is one /v1/models entry.
type ModelEntry struct {
	// ID is the model identifier.
	ID string `json:"id"`

	// Object is always "model".
	Object string `json:"object"`

	// Created is a nominal Unix creation time.
	Created int64 `json:"created"`

	// OwnedBy names the serving system.
	OwnedBy string `json:"owned_by"`
}

// ErrorResponse is the OpenAI-compatible error body.
type ErrorResponse struct {
	// Error holds the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	// Message is the human-readable description.
	Message string `json:"message"`

	// Type categorizes the error: invalid_request_error,
	// authentication_error, rate_limit_exceeded, server_error,
	// bad_gateway, gateway_timeout.
	Type string `json:"type"`

	// Param names the offending parameter, when known.
	Param string `json:"param,omitempty"`

	// Code is a machine-readable code, when known.
	Code string `json:"code,omitempty"`
}
