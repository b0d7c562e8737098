package server

import (
	"encoding/json"
	"net/http"

	"github.com/Jack-Penn/AlgoRhythms/internal/tasks"
)

// WeightsHandler serves the tuned target profile and weight emphasis for a
// mood/activity pair at GET /generate-weights. Clients call it to prefill a
// generation request before the run starts.
type WeightsHandler struct{}

// NewWeightsHandler creates a weights handler.
func NewWeightsHandler() *WeightsHandler {
	return &WeightsHandler{}
}

// Routes returns the HTTP routes this handler serves.
func (h *WeightsHandler) Routes() []string {
	return []string{"/generate-weights"}
}

// ServeHTTP resolves the preset for the requested mood and activity.
// Both parameters are required; unknown values fall back to the neutral
// preset rather than failing.
func (h *WeightsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	mood := query.Get("mood")
	activity := query.Get("activity")

	if mood == "" || activity == "" {
		writeJSONError(w, http.StatusBadRequest, "Activity or Mood is undefined")
		return
	}

	preset := tasks.PresetFor(mood, activity)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(preset)
}
