// Package config defines the gateway configuration: YAML file, applied
// defaults, validation, environment overrides (GANYMEDE_SECTION_FIELD),
// and an fsnotify-based watcher for hot reload.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	// Server configures the caller-facing HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Backend configures the agent backend endpoint and credentials.
	Backend BackendConfig `yaml:"backend"`

	// Transport configures retries for unary backend calls.
	Transport TransportConfig `yaml:"transport"`

	// Session configures the conversation session cache.
	Session SessionConfig `yaml:"session"`

	// Heartbeat configures stream liveness thresholds.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`

	// Models configures the model capability surface.
	Models ModelsConfig `yaml:"models"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddress is the host:port to bind.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading a request (headers + body).
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing a response. Zero disables it, which
	// streaming responses require.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive idleness.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BackendConfig configures the agent backend.
type BackendConfig struct {
	// BaseURL is the standard backend endpoint.
	BaseURL string `yaml:"base_url"`

	// PrivacyBaseURL is the privacy-mode endpoint.
	PrivacyBaseURL string `yaml:"privacy_base_url"`

	// UsePrivacy selects the privacy endpoint.
	UsePrivacy bool `yaml:"use_privacy"`

	// Token is the opaque bearer credential. Prefer the
	// GANYMEDE_BACKEND_TOKEN environment variable over the file.
	Token string `yaml:"token"`

	// Checksum is the opaque client checksum header value.
	Checksum string `yaml:"checksum"`
}

// TransportConfig configures unary call retries.
type TransportConfig struct {
	// MaxRetries is the retry budget after the first attempt.
	MaxRetries int `yaml:"max_retries"`

	// BackoffBase is the first retry delay; it doubles per retry.
	BackoffBase time.Duration `yaml:"backoff_base"`

	// BackoffCap bounds the computed delay.
	BackoffCap time.Duration `yaml:"backoff_cap"`

	// Timeout is the per-attempt request timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig configures the session cache.
type SessionConfig struct {
	// TTL is the idle lifetime of a cached session.
	TTL time.Duration `yaml:"ttl"`

	// MaxSessions caps concurrent cached sessions.
	MaxSessions int `yaml:"max_sessions"`
}

// HeartbeatConfig configures stream liveness.
type HeartbeatConfig struct {
	// MaxBeforeProgress is the heartbeat ceiling before any progress.
	MaxBeforeProgress uint `yaml:"max_before_progress"`

	// MaxAfterProgress is the heartbeat ceiling once progress was seen.
	MaxAfterProgress uint `yaml:"max_after_progress"`

	// IdleBeforeProgress is the wall-clock idle ceiling before progress.
	IdleBeforeProgress time.Duration `yaml:"idle_before_progress"`

	// IdleAfterProgress is the wall-clock idle ceiling after progress.
	IdleAfterProgress time.Duration `yaml:"idle_after_progress"`
}

// ModelsConfig configures the capability surface.
type ModelsConfig struct {
	// RefreshSchedule is a cron expression for list refresh ("" disables).
	RefreshSchedule string `yaml:"refresh_schedule"`

	// CacheTTL is how long a fetched model list is trusted.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	// Enabled mounts the metrics handler.
	Enabled bool `yaml:"enabled"`

	// Path is the handler path.
	Path string `yaml:"path"`
}
