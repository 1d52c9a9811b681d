package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ganymede.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
backend:
  base_url: https://agent.example.com
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:8384" {
		t.Errorf("listen address default missing: %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("write timeout must default to zero for streaming, got %s", cfg.Server.WriteTimeout)
	}
	if cfg.Transport.MaxRetries != 3 {
		t.Errorf("retry default missing: %d", cfg.Transport.MaxRetries)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Errorf("session ttl default missing: %s", cfg.Session.TTL)
	}
	if cfg.Heartbeat.MaxBeforeProgress != 30 || cfg.Heartbeat.MaxAfterProgress != 10 {
		t.Errorf("heartbeat defaults missing: %+v", cfg.Heartbeat)
	}
	if cfg.Models.RefreshSchedule != "@every 1h" {
		t.Errorf("refresh schedule default missing: %q", cfg.Models.RefreshSchedule)
	}
}

func TestExplicitValuesSurviveDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
server:
  listen_address: 0.0.0.0:9000
backend:
  base_url: https://agent.example.com
transport:
  max_retries: 7
heartbeat:
  max_before_progress: 3
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("explicit listen address lost: %q", cfg.Server.ListenAddress)
	}
	if cfg.Transport.MaxRetries != 7 {
		t.Errorf("explicit retries lost: %d", cfg.Transport.MaxRetries)
	}
	if cfg.Heartbeat.MaxBeforeProgress != 3 {
		t.Errorf("explicit heartbeat ceiling lost: %d", cfg.Heartbeat.MaxBeforeProgress)
	}
}

func TestValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			"missing backend url",
			`server: {listen_address: ":1"}`,
			"backend.base_url",
		},
		{
			"non-http backend url",
			"backend:\n  base_url: ftp://agent.example.com\n",
			"http(s)",
		},
		{
			"privacy selected without url",
			"backend:\n  base_url: https://a.example.com\n  use_privacy: true\n",
			"privacy_base_url",
		},
		{
			"bad log level",
			"backend:\n  base_url: https://a.example.com\ntelemetry:\n  logging:\n    level: loud\n",
			"logging.level",
		},
		{
			"idle ceilings inverted",
			"backend:\n  base_url: https://a.example.com\nheartbeat:\n  idle_before_progress: 10s\n  idle_after_progress: 60s\n",
			"idle_after_progress",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("GANYMEDE_SERVER_LISTEN_ADDRESS", "127.0.0.1:7777")
	t.Setenv("GANYMEDE_BACKEND_TOKEN", "env-token")
	t.Setenv("GANYMEDE_TRANSPORT_MAX_RETRIES", "9")
	t.Setenv("GANYMEDE_HEARTBEAT_MAX_AFTER_PROGRESS", "4")
	t.Setenv("GANYMEDE_SESSION_TTL", "5m")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, `
backend:
  base_url: https://agent.example.com
  token: file-token
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("listen address override lost: %q", cfg.Server.ListenAddress)
	}
	if cfg.Backend.Token != "env-token" {
		t.Errorf("env token must beat the file token, got %q", cfg.Backend.Token)
	}
	if cfg.Transport.MaxRetries != 9 {
		t.Errorf("retries override lost: %d", cfg.Transport.MaxRetries)
	}
	if cfg.Heartbeat.MaxAfterProgress != 4 {
		t.Errorf("heartbeat override lost: %d", cfg.Heartbeat.MaxAfterProgress)
	}
	if cfg.Session.TTL != 5*time.Minute {
		t.Errorf("session ttl override lost: %s", cfg.Session.TTL)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	reloaded := make(chan *Config, 1)
	w, err := WatchConfig(path, nil, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer w.Close()

	next := minimalConfig + "transport:\n  max_retries: 5\n"
	if err := os.WriteFile(path, []byte(next), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Transport.MaxRetries != 5 {
			t.Errorf("reloaded config stale: %d", cfg.Transport.MaxRetries)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestWatcherKeepsOldConfigOnBadEdit(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	reloaded := make(chan *Config, 1)
	w, err := WatchConfig(path, nil, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("backend:\n  base_url: ''\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		t.Errorf("invalid config must not reach the callback: %+v", cfg)
	case <-time.After(time.Second):
	}
}
