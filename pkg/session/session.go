// Package session owns per-conversation streaming state: one live logical
// stream per conversation key, its frame sequence numbering, its lifecycle
// state machine, and the heartbeat-based liveness monitor layered on top.
//
// Sessions live in a bounded LRU+TTL cache (pkg/cache); capacity eviction
// and TTL expiry both route through Close, so a session is torn down exactly
// once no matter how it leaves the cache.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the session lifecycle state.
type State int

const (
	// StateIdle means no turn is in flight; the session is cached for
	// reuse by a subsequent turn.
	StateIdle State = iota

	// StateStreaming means a turn is in flight and frames are being
	// appended/consumed.
	StateStreaming

	// StateAborting means an abort is underway (heartbeat ceiling breach
	// or transport failure exhaustion) and cleanup has not finished.
	StateAborting

	// StateClosed is terminal. No frame is ever appended afterward.
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateAborting:
		return "aborting"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Session is the in-memory state of one logical conversation stream. All
// mutation goes through its methods; the internal mutex is the unit of
// mutual exclusion for the conversation (independent conversations never
// contend on it).
type Session struct {
	// ID is the unique session identifier.
	ID string

	// ConversationID is the backend conversation this session serves.
	ConversationID string

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	mu sync.Mutex

	// seq is the next sequence number to allocate. Strictly increasing;
	// the first allocated value is 0.
	seq uint64

	// state is the lifecycle state.
	state State

	// lastActivityAt is refreshed on every inbound or outbound frame.
	lastActivityAt time.Time

	// heartbeatsBeforeProgress counts heartbeats seen this turn before any
	// progress; heartbeatsSinceProgress counts those after the most recent
	// progress. Both reset to zero on progress.
	heartbeatsBeforeProgress uint
	heartbeatsSinceProgress  uint

	// progressed records whether this turn has seen any progress.
	progressed bool

	// closeReason records why the session closed.
	closeReason string
}

// newSession creates a fresh Idle session for a conversation.
func newSession(conversationID string) *Session {
	now := time.Now()
	return &Session{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		CreatedAt:      now,
		lastActivityAt: now,
	}
}

// NextSequence allocates the next frame sequence number. The first call on
// a fresh session returns 0 and moves it from Idle to Streaming. Allocating
// on a closed or aborting session fails with *InvalidatedError.
func (s *Session) NextSequence() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed, StateAborting:
		return 0, &InvalidatedError{
			ConversationID: s.ConversationID,
			Reason:         "append on " + s.state.String() + " session",
		}
	case StateIdle:
		s.state = StateStreaming
	}

	seq := s.seq
	s.seq++
	s.lastActivityAt = time.Now()
	return seq, nil
}

// Touch refreshes the activity timestamp. Called on every frame in either
// direction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivityAt = time.Now()
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivityAt returns the last activity timestamp.
func (s *Session) LastActivityAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivityAt
}

// SequenceCount returns how many sequence numbers have been allocated.
func (s *Session) SequenceCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// EndTurn completes the current turn: Streaming moves back to Idle and the
// per-turn heartbeat bookkeeping resets, keeping the session cached for a
// follow-up tool-result turn.
func (s *Session) EndTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStreaming {
		s.state = StateIdle
	}
	s.heartbeatsBeforeProgress = 0
	s.heartbeatsSinceProgress = 0
	s.progressed = false
	s.lastActivityAt = time.Now()
}

// beginAbort moves Idle/Streaming to Aborting. Returns false if the session
// was already aborting or closed.
func (s *Session) beginAbort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAborting || s.state == StateClosed {
		return false
	}
	s.state = StateAborting
	return true
}

// close makes the state transition to Closed. Returns false if already
// closed, so teardown runs exactly once.
func (s *Session) close(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	s.closeReason = reason
	return true
}

// CloseReason returns why the session closed ("" while live).
func (s *Session) CloseReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeReason
}
