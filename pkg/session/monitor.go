package session

import (
	"time"

	"ganymede-hq/ganymede/pkg/agent"
)

// MonitorConfig holds the liveness thresholds. The before-progress phase
// (model still warming up, nothing emitted yet) tolerates more waiting than
// the after-progress phase, where silence usually means a wedged stream.
type MonitorConfig struct {
	// MaxHeartbeatsBeforeProgress is the heartbeat ceiling before any
	// progress is seen on the turn. Default: 30
	MaxHeartbeatsBeforeProgress uint

	// MaxHeartbeatsAfterProgress is the heartbeat ceiling once the turn
	// has produced progress. Default: 10
	MaxHeartbeatsAfterProgress uint

	// IdleBeforeProgress is the wall-clock idle ceiling before progress.
	// Default: 120s
	IdleBeforeProgress time.Duration

	// IdleAfterProgress is the wall-clock idle ceiling after progress.
	// Default: 30s
	IdleAfterProgress time.Duration
}

// withDefaults fills zero fields with the package defaults.
func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.MaxHeartbeatsBeforeProgress == 0 {
		c.MaxHeartbeatsBeforeProgress = 30
	}
	if c.MaxHeartbeatsAfterProgress == 0 {
		c.MaxHeartbeatsAfterProgress = 10
	}
	if c.IdleBeforeProgress <= 0 {
		c.IdleBeforeProgress = 120 * time.Second
	}
	if c.IdleAfterProgress <= 0 {
		c.IdleAfterProgress = 30 * time.Second
	}
	return c
}

// Monitor classifies each server message as progress or no-progress and
// decides when a stream is dead. It holds no state of its own; all
// bookkeeping lives on the Session so the decision survives reconnects
// within a turn.
type Monitor struct {
	cfg MonitorConfig

	// now is replaceable for tests
	now func() time.Time
}

// NewMonitor creates a Monitor with the given thresholds.
func NewMonitor(cfg MonitorConfig) *Monitor {
	return &Monitor{cfg: cfg.withDefaults(), now: time.Now}
}

// Observe records one server message against the session's liveness
// bookkeeping. It returns nil while the stream is healthy and a
// *HeartbeatTimeoutError the instant a heartbeat ceiling or idle ceiling is
// breached. The caller aborts the session on a non-nil return.
func (m *Monitor) Observe(s *Session, msg *agent.ServerMessage) error {
	if isHeartbeat(msg) {
		return m.observeHeartbeat(s)
	}
	m.observeProgress(s)
	return nil
}

// IdleTimeout returns the idle ceiling for the session's current phase,
// for callers arming read deadlines on the stream.
func (m *Monitor) IdleTimeout(s *Session) time.Duration {
	s.mu.Lock()
	progressed := s.progressed
	s.mu.Unlock()

	if progressed {
		return m.cfg.IdleAfterProgress
	}
	return m.cfg.IdleBeforeProgress
}

// IdleExceeded builds the timeout error for a stream that stayed silent past
// the current phase's idle ceiling. The caller decides the stream is dead;
// this only records which ceiling applied and by how much it was missed.
func (m *Monitor) IdleExceeded(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	phase := "before_progress"
	idleLimit := m.cfg.IdleBeforeProgress
	if s.progressed {
		phase = "after_progress"
		idleLimit = m.cfg.IdleAfterProgress
	}
	return &HeartbeatTimeoutError{
		ConversationID: s.ConversationID,
		Phase:          phase,
		Idle:           m.now().Sub(s.lastActivityAt),
		IdleLimit:      idleLimit,
	}
}

// isHeartbeat reports whether the message is a pure keepalive. Anything
// else (deltas, tool-call traffic, checkpoints, kv messages, even unknown
// fields) counts as progress.
func isHeartbeat(msg *agent.ServerMessage) bool {
	return msg.Update != nil && msg.Update.Kind() == agent.UpdateHeartbeat
}

// observeProgress resets both heartbeat counters and refreshes activity.
func (m *Monitor) observeProgress(s *Session) {
	s.mu.Lock()
	s.heartbeatsBeforeProgress = 0
	s.heartbeatsSinceProgress = 0
	s.progressed = true
	s.lastActivityAt = m.now()
	s.mu.Unlock()
}

// observeHeartbeat increments the phase-appropriate counter and checks both
// the count ceiling and the idle ceiling; whichever trips first wins.
func (m *Monitor) observeHeartbeat(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count, limit uint
	var idleLimit time.Duration
	var phase string

	if s.progressed {
		s.heartbeatsSinceProgress++
		count, limit = s.heartbeatsSinceProgress, m.cfg.MaxHeartbeatsAfterProgress
		idleLimit = m.cfg.IdleAfterProgress
		phase = "after_progress"
	} else {
		s.heartbeatsBeforeProgress++
		count, limit = s.heartbeatsBeforeProgress, m.cfg.MaxHeartbeatsBeforeProgress
		idleLimit = m.cfg.IdleBeforeProgress
		phase = "before_progress"
	}

	idle := m.now().Sub(s.lastActivityAt)

	if count > limit {
		return &HeartbeatTimeoutError{
			ConversationID: s.ConversationID,
			Phase:          phase,
			Heartbeats:     count,
			Limit:          limit,
		}
	}
	if idle > idleLimit {
		return &HeartbeatTimeoutError{
			ConversationID: s.ConversationID,
			Phase:          phase,
			Idle:           idle,
			IdleLimit:      idleLimit,
		}
	}
	return nil
}
