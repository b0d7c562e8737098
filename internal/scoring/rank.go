package scoring

import (
	"sort"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
)

// Rank scores every candidate and returns a new slice sorted by score
// descending, ties broken by id ascending. The input is not mutated.
func Rank(p Params, pool []models.Candidate) []models.Candidate {
	ranked := make([]models.Candidate, len(pool))
	for i, c := range pool {
		c.Score = Score(p, c)
		ranked[i] = c
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	return ranked
}

// Select walks the ranked pool greedily until the requested length is
// reached. Each step takes the remaining candidate with the highest
// cohesion-adjusted score; the adjustment compares against what has already
// been picked, so the playlist grows coherent rather than nine-ways maximal.
//
// Candidates whose base score falls below cutoff are excluded outright, even
// if that leaves the selection short: under-filling beats padding with poor
// matches. An empty pool selects nothing.
func Select(p Params, pool []models.Candidate, length int, cutoff float64) []models.Candidate {
	if length <= 0 || len(pool) == 0 {
		return nil
	}

	ranked := Rank(p, pool)

	eligible := ranked[:0:0]
	for _, c := range ranked {
		if c.Score >= cutoff {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	selected := make([]models.Candidate, 0, min(length, len(eligible)))
	remaining := eligible

	for len(selected) < length && len(remaining) > 0 {
		best := 0
		bestAdjusted := remaining[0].Score + cohesionAdjust(p.Weights.Cohesion, remaining[0], selected)
		for i := 1; i < len(remaining); i++ {
			adjusted := remaining[i].Score + cohesionAdjust(p.Weights.Cohesion, remaining[i], selected)
			if adjusted > bestAdjusted {
				best = i
				bestAdjusted = adjusted
			}
		}

		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return selected
}
