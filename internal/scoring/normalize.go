package scoring

import (
	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/montanaflynn/stats"
)

// Normalize maps a feature vector onto the unit interval. The seven
// unit-interval features pass through (clamped), tempo and loudness are
// rescaled from their fixed domains. All scoring and distance math runs on
// normalized vectors.
func Normalize(f models.Features) models.Features {
	return models.Features{
		Acousticness:     clamp01(f.Acousticness),
		Danceability:     clamp01(f.Danceability),
		Energy:           clamp01(f.Energy),
		Instrumentalness: clamp01(f.Instrumentalness),
		Liveness:         clamp01(f.Liveness),
		Loudness:         clamp01((f.Loudness - models.LoudnessMin) / (models.LoudnessMax - models.LoudnessMin)),
		Speechiness:      clamp01(f.Speechiness),
		Tempo:            clamp01((f.Tempo - models.TempoMin) / (models.TempoMax - models.TempoMin)),
		Valence:          clamp01(f.Valence),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Distance is the mean absolute difference between two normalized feature
// vectors, in [0,1]. Inputs are raw features; normalization happens here.
func Distance(a, b models.Features) float64 {
	av := Normalize(a).Vector()
	bv := Normalize(b).Vector()

	var sum float64
	for i := range av {
		d := av[i] - bv[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / float64(len(av))
}

// FeatureStats summarizes one feature dimension across a candidate pool.
type FeatureStats struct {
	Key    string  `json:"key"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// PoolStats computes per-feature distribution summaries for a pool, in
// [models.FeatureKeys] order. An empty pool yields nil.
func PoolStats(pool []models.Candidate) []FeatureStats {
	if len(pool) == 0 {
		return nil
	}

	columns := make([][]float64, len(models.FeatureKeys))
	for i := range columns {
		columns[i] = make([]float64, 0, len(pool))
	}
	for _, c := range pool {
		v := c.Features.Vector()
		for i := range v {
			columns[i] = append(columns[i], v[i])
		}
	}

	out := make([]FeatureStats, len(models.FeatureKeys))
	for i, key := range models.FeatureKeys {
		column := stats.Float64Data(columns[i])
		min, _ := stats.Min(column)
		max, _ := stats.Max(column)
		mean, _ := stats.Mean(column)
		stdDev, _ := stats.StandardDeviation(column)
		out[i] = FeatureStats{Key: key, Min: min, Max: max, Mean: mean, StdDev: stdDev}
	}
	return out
}

// NormalizePool min-max rescales every feature dimension across the pool,
// returning a new slice. Dimensions where every candidate shares one value
// collapse to zero. Raw pools from arbitrary sources arrive with features
// outside the provider's documented ranges; this puts them on a common
// footing before scoring.
func NormalizePool(pool []models.Candidate) []models.Candidate {
	if len(pool) == 0 {
		return nil
	}

	statsPerDim := PoolStats(pool)

	out := make([]models.Candidate, len(pool))
	for i, c := range pool {
		v := c.Features.Vector()
		for dim := range v {
			span := statsPerDim[dim].Max - statsPerDim[dim].Min
			if span == 0 {
				v[dim] = 0
				continue
			}
			v[dim] = (v[dim] - statsPerDim[dim].Min) / span
		}
		scaled := c
		scaled.Features = models.FeaturesFromVector(v)
		out[i] = scaled
	}
	return out
}

// AverageFeatures returns the mean feature vector of the given tracks.
// Useful for turning a favorites list into a single pull target.
func AverageFeatures(features []models.Features) models.Features {
	if len(features) == 0 {
		return models.Features{}
	}

	var sum [9]float64
	for _, f := range features {
		v := f.Vector()
		for i := range v {
			sum[i] += v[i]
		}
	}
	for i := range sum {
		sum[i] /= float64(len(features))
	}
	return models.FeaturesFromVector(sum)
}
