package handler

import (
	"net/http"
	"time"
)

// Health reports liveness and the process start time.
type Health struct {
	startedAt time.Time
	version   string
}

func NewHealth(version string) *Health {
	return &Health{startedAt: time.Now(), version: version}
}

func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}
