package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// Build information, set at link time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// healthStatus is the health endpoint response body.
type healthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Sessions  int    `json:"sessions"`
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	// sessionCount reports cached sessions; nil reports zero.
	sessionCount func() int
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(sessionCount func() int) *HealthHandler {
	return &HealthHandler{sessionCount: sessionCount}
}

// ServeHTTP reports process liveness.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := healthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		GoVersion: runtime.Version(),
	}
	if h.sessionCount != nil {
		status.Sessions = h.sessionCount()
	}

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		return
	}
	json.NewEncoder(w).Encode(status)
}
