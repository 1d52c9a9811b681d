// Package types defines the OpenAI-compatible request and response shapes
// served by the gateway. The types match the Chat Completions API format
// so standard OpenAI SDKs work unmodified; streaming deltas additionally
// carry reasoning_content for reasoning-capable models.
package types
