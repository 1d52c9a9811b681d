package backend

// StreamError means the server event stream failed mid-flight: the
// connection dropped, a frame would not decode, or the backend ended the
// stream with an error trailer. The session layer treats it like retry
// exhaustion and invalidates the conversation's stream state.
type StreamError struct {
	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return "backend stream: " + e.Message + ": " + e.Cause.Error()
	}
	return "backend stream: " + e.Message
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Cause
}
