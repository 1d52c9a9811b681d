// Ganymede is an OpenAI-compatible gateway to a proto-speaking agent
// backend.
//
// It accepts standard chat-completion requests, drives the backend's
// enveloped streaming protocol, and translates the update stream back
// into OpenAI responses:
//   - Streaming and non-streaming chat completions
//   - Tool calling, vision input, and reasoning content
//   - Per-conversation session reuse across turns
//   - Prometheus metrics and structured logging
//
// Usage:
//
//	# Start the gateway with default configuration
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /path/to/ganymede.yaml
//
//	# Validate a configuration file
//	ganymede validate --config /path/to/ganymede.yaml
//
//	# List the models a running gateway serves
//	ganymede models --target http://localhost:8384
//
//	# Show version information
//	ganymede version
package main

func main() {
	Execute()
}
