package scoring

import (
	"fmt"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
)

// Policy names the per-feature scoring formula.
//
// The selection contract is closeness to target. The magnitude policy scores
// raw feature value times weight instead, matching the stacked-contribution
// view some consumers present, and is kept selectable until the two agree.
type Policy string

const (
	PolicyCloseness Policy = "closeness"
	PolicyMagnitude Policy = "magnitude"
)

// ParsePolicy validates a policy name, defaulting empty to closeness.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyCloseness, PolicyMagnitude:
		return Policy(s), nil
	case "":
		return PolicyCloseness, nil
	default:
		return "", fmt.Errorf("unknown scoring policy %q", s)
	}
}

// favoriteCloseness is the minimum similarity (1 - distance) at which a
// candidate counts as acoustically close to a favorite track.
const favoriteCloseness = 0.8

// Params configures one scoring pass over a candidate pool.
type Params struct {
	Target  models.Features
	Weights models.Weights
	Policy  Policy

	// FavoriteIDs are candidate ids drawn directly from the user's
	// favorites; FavoriteFeatures are the favorites' feature vectors, used
	// to detect acoustically close candidates.
	FavoriteIDs      []string
	FavoriteFeatures []models.Features
}

// Score computes a candidate's base score: the per-feature weighted
// contributions under the policy, plus the personalization bonus. Each
// feature contributes on a 0-100 sub-scale.
func Score(p Params, c models.Candidate) float64 {
	target := Normalize(p.Target).Vector()
	candidate := Normalize(c.Features).Vector()
	weights := p.Weights.Vector()

	var total float64
	for i := range candidate {
		total += contribution(p.Policy, weights[i], target[i], candidate[i])
	}

	return total + personalizationBonus(p, c)
}

// contribution is one feature's share of the base score.
func contribution(policy Policy, weight, target, candidate float64) float64 {
	switch policy {
	case PolicyMagnitude:
		return weight * candidate * 100
	default:
		diff := target - candidate
		if diff < 0 {
			diff = -diff
		}
		return weight * (1 - diff) * 100
	}
}

// personalizationBonus rewards candidates drawn from, or acoustically close
// to, the user's favorites, scaled by the personalization weight.
func personalizationBonus(p Params, c models.Candidate) float64 {
	if p.Weights.Personalization == 0 {
		return 0
	}

	similarity := 0.0
	for _, id := range p.FavoriteIDs {
		if id == c.ID {
			similarity = 1
			break
		}
	}

	if similarity < 1 {
		for _, fav := range p.FavoriteFeatures {
			if s := 1 - Distance(c.Features, fav); s > similarity {
				similarity = s
			}
		}
	}

	if similarity < favoriteCloseness {
		return 0
	}
	return p.Weights.Personalization * similarity * 100
}

// cohesionAdjust shifts a candidate's effective score by its mean distance
// to the already-selected tracks: a bonus when close, a penalty when far,
// zero for the first pick.
func cohesionAdjust(weight float64, c models.Candidate, selected []models.Candidate) float64 {
	if weight == 0 || len(selected) == 0 {
		return 0
	}

	var sum float64
	for _, s := range selected {
		sum += Distance(c.Features, s.Features)
	}
	meanDist := sum / float64(len(selected))

	return weight * (1 - 2*meanDist) * 100
}
