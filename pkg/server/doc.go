// Package server provides the caller-facing HTTP server of the gateway.
//
// It ties together the chat-completion handlers, the middleware chain,
// and the prometheus endpoint, and manages the server lifecycle: start,
// graceful shutdown, and OS signal handling (SIGTERM, SIGINT).
//
// # Routes
//
//   - POST /v1/chat/completions - chat completion (streaming and non-streaming)
//   - GET  /v1/models           - known models
//   - GET  /healthz             - liveness probe
//   - GET  /metrics             - prometheus scrape endpoint (when enabled)
//
// # Middleware Chain
//
// Requests pass through, outermost first: Recovery, RequestID, Logging,
// CORS, BodyLimit.
package server
