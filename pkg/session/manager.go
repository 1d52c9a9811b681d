package session

import (
	"log/slog"
	"time"

	"ganymede-hq/ganymede/pkg/cache"
)

// ManagerConfig bounds the session cache.
type ManagerConfig struct {
	// TTL is the idle lifetime of a cached session. Default: 30m
	TTL time.Duration

	// MaxSessions caps concurrent cached sessions. Default: 256
	MaxSessions int
}

// withDefaults fills zero fields with the package defaults.
func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.TTL <= 0 {
		c.TTL = 30 * time.Minute
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 256
	}
	return c
}

// Manager owns the session cache and the rules for reusing, invalidating,
// and replacing sessions. All methods are safe for concurrent use by
// independent conversation handlers.
type Manager struct {
	// sessions maps conversation keys to live sessions
	sessions *cache.Cache[string, *Session]

	// logger receives lifecycle logs
	logger *slog.Logger

	// onClose, when set, observes every session close (metrics hook)
	onClose func(reason string)
}

// NewManager creates a Manager with a bounded session cache. LRU eviction
// and TTL expiry both close the evicted session.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	m := &Manager{logger: logger}
	m.sessions = cache.New(cfg.TTL, cfg.MaxSessions, func(key string, s *Session) {
		m.teardown(s, "evicted")
	})
	return m
}

// SetCloseHook registers an observer for session closes. Must be called
// before the manager is shared across goroutines.
func (m *Manager) SetCloseHook(hook func(reason string)) {
	m.onClose = hook
}

// Acquire returns the live session for a conversation key, creating a fresh
// one (sequence 0, Idle) if none is cached, the cached one expired, or the
// cached one is closed.
func (m *Manager) Acquire(conversationKey string) *Session {
	if s, ok := m.sessions.Get(conversationKey); ok {
		if s.State() != StateClosed && s.State() != StateAborting {
			return s
		}
		// A closed session still in the cache is stale bookkeeping.
		m.sessions.Remove(conversationKey)
	}

	s := newSession(conversationKey)
	m.sessions.Set(conversationKey, s)
	m.logger.Debug("session created",
		"session_id", s.ID,
		"conversation_id", conversationKey,
	)
	return s
}

// Close transitions the session to Closed, removes it from the cache, and
// releases its state. Safe to call more than once; teardown runs once.
func (m *Manager) Close(s *Session, reason string) {
	// Remove without re-invoking the eviction callback; teardown below is
	// the single close path.
	m.sessions.Remove(s.ConversationID)
	m.teardown(s, reason)
}

// Abort moves the session to Aborting and then closes it. Used on heartbeat
// ceiling breaches and transport failure exhaustion.
func (m *Manager) Abort(s *Session, reason string) {
	if s.beginAbort() {
		m.logger.Warn("session aborting",
			"session_id", s.ID,
			"conversation_id", s.ConversationID,
			"reason", reason,
		)
	}
	m.Close(s, reason)
}

// Invalidate closes whatever session is cached for the key, forcing the
// next Acquire to start a fresh conversation. Used on sequence gaps and
// externally observed resets.
func (m *Manager) Invalidate(conversationKey, reason string) {
	if s, ok := m.sessions.Get(conversationKey); ok {
		m.Close(s, reason)
	}
}

// Len returns the number of cached sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Shutdown closes every cached session and stops the cache sweeper.
func (m *Manager) Shutdown() {
	m.sessions.Clear()
	m.sessions.Close()
}

// teardown is the single close path: state transition, logging, hook.
func (m *Manager) teardown(s *Session, reason string) {
	if !s.close(reason) {
		return
	}
	m.logger.Debug("session closed",
		"session_id", s.ID,
		"conversation_id", s.ConversationID,
		"reason", reason,
		"frames", s.SequenceCount(),
	)
	if m.onClose != nil {
		m.onClose(reason)
	}
}

// VerifyCheckpoint validates a backend-reported sequence against what this
// side has allocated. A checkpoint past our own counter means the backend
// has state we never sent (an externally observed reset) and the session
// must be invalidated.
func (m *Manager) VerifyCheckpoint(s *Session, remoteSeq uint64) error {
	if remoteSeq >= s.SequenceCount() && remoteSeq != 0 {
		err := &InvalidatedError{
			ConversationID: s.ConversationID,
			Reason:         "checkpoint sequence ahead of local counter",
		}
		m.Close(s, err.Reason)
		return err
	}
	return nil
}
