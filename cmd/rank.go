package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/repositories"
	"github.com/Jack-Penn/AlgoRhythms/internal/scoring"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/Jack-Penn/AlgoRhythms/internal/tasks"
	"github.com/urfave/cli/v3"
)

// RankLocal scores and selects from the local candidate pool without
// touching the API. The pool comes from the track cache when one exists,
// otherwise from the built-in sample set, so the command works offline.
func (r *Runner) RankLocal(ctx context.Context, cmd *cli.Command) error {
	mood := cmd.String("mood")
	activity := cmd.String("activity")
	length := cmd.Int("length")
	favorites := splitList(cmd.String("favorites"))
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if length <= 0 {
		length = r.config.Generation.Length
	}

	rawPolicy := cmd.String("policy")
	if rawPolicy == "" {
		rawPolicy = r.config.Generation.Policy
	}
	policy, err := scoring.ParsePolicy(rawPolicy)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	cutoff := cmd.Float("cutoff")
	if cutoff == 0 {
		cutoff = r.config.Generation.ScoreCutoff
	}

	compiler, cleanup := r.localCompiler()
	defer cleanup()

	pool, counts, err := compiler.Compile(ctx, tasks.CompileOptions{
		Mood:          mood,
		Activity:      activity,
		FavoriteSongs: favorites,
	}, nil)
	if err != nil {
		return err
	}

	preset := tasks.PresetFor(mood, activity)
	target := preset.Target
	weights := preset.Weights

	if raw := cmd.String("target"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &target); err != nil {
			return fmt.Errorf("%w: --target is not valid JSON: %v", shared.ErrInvalidFlag, err)
		}
	}
	if raw := cmd.String("weights"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &weights); err != nil {
			return fmt.Errorf("%w: --weights is not valid JSON: %v", shared.ErrInvalidFlag, err)
		}
	}

	params := scoring.Params{
		Target:           target,
		Weights:          weights,
		Policy:           policy,
		FavoriteIDs:      favorites,
		FavoriteFeatures: poolFeatures(pool, favorites),
	}

	selection := scoring.Select(params, pool, length, cutoff)

	if useJSON {
		return r.writeJSON(map[string]any{
			"pool_size": len(pool),
			"sources":   counts,
			"policy":    string(policy),
			"cutoff":    cutoff,
			"tracks":    selection,
		}, pretty)
	}

	r.writePlain("Pool: %d candidates", len(pool))
	for _, source := range sortedKeys(counts) {
		r.writePlain("  %s=%d", source, counts[source])
	}
	r.writePlain("\nPolicy: %s", policy)
	if cutoff != 0 {
		r.writePlain("  Cutoff: %.1f", cutoff)
	}
	r.writePlain("\n\n")

	if cmd.Bool("summary") {
		r.writePlainHeader("Pool Feature Summary")
		for _, s := range scoring.PoolStats(pool) {
			r.writePlain("%-18s min=%7.2f  max=%7.2f  mean=%7.2f  std=%6.2f\n",
				s.Key, s.Min, s.Max, s.Mean, s.StdDev)
		}
		r.writePlain("\n")
	}

	r.writePlainHeader("Ranked Selection")
	if len(selection) == 0 {
		r.writePlain("No candidates cleared the score cutoff.\n")
		return nil
	}

	for i, c := range selection {
		r.writePlain("%d. %s - %s [%.1f]\n", i+1, c.Artist, c.Name, c.Score)
	}

	if len(selection) < length {
		r.writePlain("\n%d of %d requested tracks cleared the cutoff\n", len(selection), length)
	}

	return nil
}

// localCompiler builds a compiler over the local track cache. Without a
// usable database the compiler still works from the built-in sample pool.
func (r *Runner) localCompiler() (*tasks.Compiler, func()) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		r.logger.Warn("track cache unavailable", "error", err)
		return tasks.NewCompiler(nil, nil, r.logger), func() {}
	}

	cache := repositories.NewTrackCacheAdapter(repositories.NewTrackRepository(db), "spotify")
	return tasks.NewCompiler(nil, cache, r.logger), func() { db.Close() }
}

// poolFeatures collects the feature vectors of the named candidates.
func poolFeatures(pool []models.Candidate, ids []string) []models.Features {
	if len(ids) == 0 {
		return nil
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var features []models.Features
	for _, c := range pool {
		if want[c.ID] {
			features = append(features, c.Features)
		}
	}
	return features
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
