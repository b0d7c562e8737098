package server

import (
	"encoding/json"
	"net/http"
)

// StatusHandler reports liveness at the root path so clients can probe the
// server before starting a run.
type StatusHandler struct{}

// NewStatusHandler creates a status handler.
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

// Routes returns the HTTP routes this handler serves.
func (h *StatusHandler) Routes() []string {
	return []string{"/"}
}

// ServeHTTP answers the liveness probe. The root pattern catches every
// unmatched path, so anything but "/" itself is a 404.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}
