// Package handlers implements the gateway's HTTP endpoints: chat
// completions (streaming and buffered), the model list, and health.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ganymede-hq/ganymede/pkg/proxy/types"
	"ganymede-hq/ganymede/pkg/translator"
)

// ChatHandler serves /v1/chat/completions.
type ChatHandler struct {
	translator *translator.Translator
	logger     *slog.Logger

	// observe, when set, records one finished request (metrics)
	observe func(model, outcome string, elapsed time.Duration)
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(tr *translator.Translator, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{translator: tr, logger: logger}
}

// SetObserver registers a per-request metrics observer. Must be called
// before the handler serves traffic.
func (h *ChatHandler) SetObserver(observe func(model, outcome string, elapsed time.Duration)) {
	h.observe = observe
}

// ServeHTTP handles one chat-completion request.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalid(w, "request body is not valid JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	trReq, err := req.ToTranslator()
	if err != nil {
		writeInvalid(w, err.Error())
		return
	}

	start := time.Now()
	outcome := "ok"
	defer func() {
		if h.observe != nil {
			h.observe(req.Model, outcome, time.Since(start))
		}
	}()

	if req.Stream {
		if err := h.serveStream(w, r, &req, trReq); err != nil {
			outcome = "error"
		}
		return
	}

	out, err := h.translator.Complete(r.Context(), trReq)
	if err != nil {
		outcome = "error"
		writeError(w, err)
		return
	}
	h.writeCompletion(w, &req, out)
}

// serveStream runs the turn and relays chunks as SSE. The returned error
// is for metrics only; once streaming has begun the error travels to the
// client as a terminal error chunk.
func (h *ChatHandler) serveStream(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest, trReq *translator.Request) error {
	ch, err := h.translator.StreamTurn(r.Context(), trReq)
	if err != nil {
		writeError(w, err)
		return err
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported by this connection"))
		return fmt.Errorf("no flusher")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	first := true
	var streamErr error

	writeChunk := func(delta types.Delta, finish *string) {
		if first {
			delta.Role = "assistant"
			first = false
		}
		chunk := types.ChatCompletionStreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []types.StreamChoice{{Delta: delta, FinishReason: finish}},
		}
		payload, err := json.Marshal(chunk)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	for chunk := range ch {
		switch {
		case chunk.Err != nil:
			streamErr = chunk.Err
			_, detail := classify(chunk.Err)
			// The status line is gone; the error rides the stream.
			payload, _ := json.Marshal(types.ErrorResponse{Error: detail})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()

		case chunk.FinishReason != "":
			reason := chunk.FinishReason
			writeChunk(types.Delta{}, &reason)

		default:
			writeChunk(types.Delta{
				Content:          chunk.Content,
				ReasoningContent: chunk.Reasoning,
				ToolCalls:        streamToolCalls(chunk.ToolCalls),
			}, nil)
		}
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
	return streamErr
}

// streamToolCalls converts translator fragments to wire fragments.
func streamToolCalls(deltas []translator.ToolCallDelta) []types.StreamToolCall {
	var out []types.StreamToolCall
	for _, d := range deltas {
		call := types.StreamToolCall{
			Index:    d.Index,
			ID:       d.ID,
			Function: types.FunctionCall{Name: d.Name, Arguments: d.ArgumentsDelta},
		}
		if d.ID != "" {
			call.Type = "function"
		}
		out = append(out, call)
	}
	return out
}

// writeCompletion writes one buffered completion response.
func (h *ChatHandler) writeCompletion(w http.ResponseWriter, req *types.ChatCompletionRequest, out *translator.Completion) {
	var calls []types.ToolCall
	for _, call := range out.ToolCalls {
		calls = append(calls, types.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: types.FunctionCall{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}

	resp := types.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []types.Choice{{
			Message: types.ResponseMessage{
				Role:             "assistant",
				Content:          out.Content,
				ReasoningContent: out.Reasoning,
				ToolCalls:        calls,
			},
			FinishReason: out.FinishReason,
		}},
		Usage: estimateUsage(req, out),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// estimateUsage approximates token counts from character length; the
// backend reports no usage of its own.
func estimateUsage(req *types.ChatCompletionRequest, out *translator.Completion) types.Usage {
	var promptChars int
	for i := range req.Messages {
		if s, ok := req.Messages[i].Content.(string); ok {
			promptChars += len(s)
		}
	}
	completionChars := len(out.Content) + len(out.Reasoning)
	for _, call := range out.ToolCalls {
		completionChars += len(call.Arguments)
	}

	u := types.Usage{
		PromptTokens:     promptChars / 4,
		CompletionTokens: completionChars / 4,
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}
