package models

import (
	"encoding/json"
)

// RunStatus is the overall state of a generation run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunStreaming RunStatus = "streaming"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// StrategyResult is one strategy's ranked selection and how long the
// strategy took, in milliseconds.
type StrategyResult struct {
	Tracks         []Candidate `json:"tracks"`
	GenerationTime float64     `json:"generation_time"`
}

// FinalResult is the payload of the terminal stream event: one ranked
// selection per strategy, plus the provider playlist id when a playlist was
// created.
type FinalResult struct {
	Playlists  map[string]StrategyResult
	PlaylistID string
}

// MarshalJSON flattens the per-strategy playlists and the playlist id into a
// single object, the layout the final event carries on the wire.
func (r FinalResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Playlists)+1)
	for name, playlist := range r.Playlists {
		out[name] = playlist
	}
	if r.PlaylistID != "" {
		out["playlist_id"] = r.PlaylistID
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. Keys that do not decode as a
// strategy playlist are skipped.
func (r *FinalResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Playlists = make(map[string]StrategyResult, len(raw))
	for key, val := range raw {
		if key == "playlist_id" {
			if err := json.Unmarshal(val, &r.PlaylistID); err != nil {
				return err
			}
			continue
		}

		var playlist StrategyResult
		if err := json.Unmarshal(val, &playlist); err != nil {
			continue
		}
		r.Playlists[key] = playlist
	}

	return nil
}

// Strategy names used as FinalResult playlist keys.
const (
	StrategyWeighted = "weighted_playlist"
	StrategyKDTree   = "kd_tree_playlist"
)
