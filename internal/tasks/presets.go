package tasks

import (
	"sort"
	"strings"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
)

// Preset pairs a target feature profile with a weight emphasis for one mood
// or activity. Presets seed the generation request when the caller does not
// supply explicit targets.
type Preset struct {
	Target  models.Features `json:"target_features"`
	Weights models.Weights  `json:"weights"`
}

// moodPresets holds the tuned profiles. Activities alias into these.
var moodPresets = map[string]Preset{
	"calm": {
		Target: models.Features{
			Acousticness:     0.8,
			Danceability:     0.2,
			Energy:           0.3,
			Instrumentalness: 0.7,
			Liveness:         0.1,
			Loudness:         -21,
			Speechiness:      0.1,
			Tempo:            75,
			Valence:          0.6,
		},
		Weights: models.Weights{
			Acousticness:     0.7,
			Danceability:     0.3,
			Energy:           0.8,
			Instrumentalness: 0.6,
			Liveness:         0.3,
			Loudness:         0.5,
			Speechiness:      0.4,
			Tempo:            0.6,
			Valence:          0.4,
			Personalization:  0.5,
			Cohesion:         0.6,
		},
	},
	"energetic": {
		Target: models.Features{
			Acousticness:     0.1,
			Danceability:     0.9,
			Energy:           0.95,
			Instrumentalness: 0.4,
			Liveness:         0.2,
			Loudness:         -5,
			Speechiness:      0.2,
			Tempo:            145,
			Valence:          0.8,
		},
		Weights: models.Weights{
			Acousticness:     0.3,
			Danceability:     0.8,
			Energy:           0.9,
			Instrumentalness: 0.3,
			Liveness:         0.4,
			Loudness:         0.6,
			Speechiness:      0.4,
			Tempo:            0.8,
			Valence:          0.6,
			Personalization:  0.5,
			Cohesion:         0.4,
		},
	},
	"melancholic": {
		Target: models.Features{
			Acousticness:     0.95,
			Danceability:     0.1,
			Energy:           0.2,
			Instrumentalness: 0.6,
			Liveness:         0.1,
			Loudness:         -15,
			Speechiness:      0.05,
			Tempo:            65,
			Valence:          0.3,
		},
		Weights: models.Weights{
			Acousticness:     0.8,
			Danceability:     0.3,
			Energy:           0.6,
			Instrumentalness: 0.5,
			Liveness:         0.3,
			Loudness:         0.4,
			Speechiness:      0.4,
			Tempo:            0.5,
			Valence:          0.8,
			Personalization:  0.5,
			Cohesion:         0.7,
		},
	},
}

// activityPresets aliases an activity onto the mood profile it plays like.
var activityPresets = map[string]string{
	"studying":    "calm",
	"working out": "energetic",
	"workout":     "energetic",
	"relaxing":    "melancholic",
}

// PresetFor resolves a mood and activity to a preset. Mood wins when both
// are recognized; anything unrecognized falls back to the neutral profile.
func PresetFor(mood, activity string) Preset {
	if p, ok := moodPresets[presetKey(mood)]; ok {
		return p
	}
	if alias, ok := activityPresets[presetKey(activity)]; ok {
		return moodPresets[alias]
	}
	return NeutralPreset()
}

// NeutralPreset is the mid-domain target with every weight at its default.
func NeutralPreset() Preset {
	return Preset{
		Target: models.Features{
			Acousticness:     0.5,
			Danceability:     0.5,
			Energy:           0.5,
			Instrumentalness: 0.5,
			Liveness:         0.5,
			Loudness:         -30,
			Speechiness:      0.5,
			Tempo:            125,
			Valence:          0.5,
		},
		Weights: models.DefaultWeights(),
	}
}

// Moods lists the recognized mood names, sorted.
func Moods() []string {
	moods := make([]string, 0, len(moodPresets))
	for mood := range moodPresets {
		moods = append(moods, mood)
	}
	sort.Strings(moods)
	return moods
}

// Activities lists the recognized activity names, sorted.
func Activities() []string {
	activities := make([]string, 0, len(activityPresets))
	for activity := range activityPresets {
		activities = append(activities, activity)
	}
	sort.Strings(activities)
	return activities
}

// SearchQuery builds the playlist search string used to seed the candidate
// pool from public playlists.
func SearchQuery(mood, activity string) string {
	var parts []string
	if m := strings.TrimSpace(mood); m != "" {
		parts = append(parts, m)
	}
	if a := strings.TrimSpace(activity); a != "" {
		parts = append(parts, a)
	}
	if len(parts) == 0 {
		return "popular songs playlist"
	}
	return strings.Join(parts, " ") + " playlist"
}

func presetKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
