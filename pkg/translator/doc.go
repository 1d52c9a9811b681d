// Package translator converts between the chat-completion request surface
// and the backend agent protocol, in both directions.
//
// Inbound, an ordered message list (plus optional multimodal parts and tool
// definitions) becomes either a RunRequest frame opening a turn or
// ExecResult continuation frames after tool execution. Outbound, the
// ServerMessage stream becomes chat-completion deltas: text and reasoning
// content, coalesced tool calls, and a terminal finish reason. Heartbeats
// never produce visible output; they feed the liveness monitor only.
//
// Capability mismatches (unknown model, tools against a non-tool model)
// fail before any frame is sent, so a rejected request never burns a
// session sequence number.
package translator
