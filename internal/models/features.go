package models

// Feature domain bounds. The seven unit-interval features live in [0,1]
// natively; tempo and loudness are normalized onto [0,1] with these fixed
// domains before any cross-feature comparison.
const (
	TempoMin    = 0.0
	TempoMax    = 250.0
	LoudnessMin = -60.0
	LoudnessMax = 0.0
)

// FeatureKeys lists the nine audio feature dimensions in canonical order.
// Vector representations and per-feature iteration follow this order.
var FeatureKeys = [9]string{
	"acousticness",
	"danceability",
	"energy",
	"instrumentalness",
	"liveness",
	"loudness",
	"speechiness",
	"tempo",
	"valence",
}

// Features is a nine-dimensional audio feature vector describing either a
// target profile or a candidate track's measured properties.
type Features struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
}

// Vector returns the feature values in [FeatureKeys] order.
func (f Features) Vector() [9]float64 {
	return [9]float64{
		f.Acousticness,
		f.Danceability,
		f.Energy,
		f.Instrumentalness,
		f.Liveness,
		f.Loudness,
		f.Speechiness,
		f.Tempo,
		f.Valence,
	}
}

// FeaturesFromVector builds a Features from values in [FeatureKeys] order.
func FeaturesFromVector(v [9]float64) Features {
	return Features{
		Acousticness:     v[0],
		Danceability:     v[1],
		Energy:           v[2],
		Instrumentalness: v[3],
		Liveness:         v[4],
		Loudness:         v[5],
		Speechiness:      v[6],
		Tempo:            v[7],
		Valence:          v[8],
	}
}

// Weights holds one non-negative weight per feature plus the two
// algorithm-level weights. Personalization scales how strongly a user's
// favorite tracks pull candidate scores; Cohesion scales how strongly
// already-selected tracks constrain subsequent picks. Every weight defaults
// to 0.5.
type Weights struct {
	Acousticness     float64 `json:"acousticness_weight"`
	Danceability     float64 `json:"danceability_weight"`
	Energy           float64 `json:"energy_weight"`
	Instrumentalness float64 `json:"instrumentalness_weight"`
	Liveness         float64 `json:"liveness_weight"`
	Loudness         float64 `json:"loudness_weight"`
	Speechiness      float64 `json:"speechiness_weight"`
	Tempo            float64 `json:"tempo_weight"`
	Valence          float64 `json:"valence_weight"`
	Personalization  float64 `json:"personalization_weight"`
	Cohesion         float64 `json:"cohesion_weight"`
}

// DefaultWeights returns the neutral weight set, 0.5 everywhere.
func DefaultWeights() Weights {
	return Weights{
		Acousticness:     0.5,
		Danceability:     0.5,
		Energy:           0.5,
		Instrumentalness: 0.5,
		Liveness:         0.5,
		Loudness:         0.5,
		Speechiness:      0.5,
		Tempo:            0.5,
		Valence:          0.5,
		Personalization:  0.5,
		Cohesion:         0.5,
	}
}

// Vector returns the per-feature weights in [FeatureKeys] order. The
// personalization and cohesion weights apply at the algorithm level, not to
// a single feature, so they are not part of the vector.
func (w Weights) Vector() [9]float64 {
	return [9]float64{
		w.Acousticness,
		w.Danceability,
		w.Energy,
		w.Instrumentalness,
		w.Liveness,
		w.Loudness,
		w.Speechiness,
		w.Tempo,
		w.Valence,
	}
}
