package translator

import (
	"fmt"
)

// CapabilityError means the request asks the target model for something it
// cannot do. It is raised before any frame is sent to the backend and maps
// to an invalid_request_error on the caller-facing surface.
type CapabilityError struct {
	// Model is the requested model identifier.
	Model string

	// Capability names what was missing: "model" (unknown id), "tools",
	// "vision".
	Capability string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	if e.Capability == "model" {
		return fmt.Sprintf("unknown model %q", e.Model)
	}
	return fmt.Sprintf("model %q does not support %s", e.Model, e.Capability)
}
