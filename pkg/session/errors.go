package session

import (
	"fmt"
	"time"
)

// InvalidatedError means the session can no longer be appended to: a
// sequence gap, TTL expiry, or explicit close. It is recoverable; the
// caller starts a fresh conversation rather than failing hard.
type InvalidatedError struct {
	// ConversationID is the affected conversation.
	ConversationID string

	// Reason describes what invalidated the session.
	Reason string
}

// Error implements the error interface.
func (e *InvalidatedError) Error() string {
	return fmt.Sprintf("session for conversation %q invalidated: %s", e.ConversationID, e.Reason)
}

// HeartbeatTimeoutError means the liveness monitor declared the stream
// dead. It is surfaced to the caller as a terminal error chunk, never a
// silent hang.
type HeartbeatTimeoutError struct {
	// ConversationID is the affected conversation.
	ConversationID string

	// Phase is "before_progress" or "after_progress".
	Phase string

	// Heartbeats and Limit are set when the count ceiling tripped.
	Heartbeats uint
	Limit      uint

	// Idle and IdleLimit are set when the idle ceiling tripped.
	Idle      time.Duration
	IdleLimit time.Duration
}

// Error implements the error interface.
func (e *HeartbeatTimeoutError) Error() string {
	if e.Idle > 0 {
		return fmt.Sprintf("stream for conversation %q idle %s (limit %s, phase %s)",
			e.ConversationID, e.Idle.Round(time.Millisecond), e.IdleLimit, e.Phase)
	}
	return fmt.Sprintf("stream for conversation %q exceeded %d heartbeats without progress (phase %s)",
		e.ConversationID, e.Limit, e.Phase)
}
