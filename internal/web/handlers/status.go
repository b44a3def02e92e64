package handlers

import (
	"encoding/json"
	"net/http"
)

// StatusHandler exposes the pipeline status.
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// Status returns producer states and counters.
// GET /api/v1/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.provider.Status()); err != nil {
		_ = err // Client disconnected
	}
}
