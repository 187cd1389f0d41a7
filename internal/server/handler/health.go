package handler

import (
	"net/http"
	"time"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler anchored at the current time.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC()}
}

// HealthCheck responds with service status and uptime.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}
