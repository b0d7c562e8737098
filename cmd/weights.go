package main

import (
	"context"
	"strings"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/tasks"
	"github.com/urfave/cli/v3"
)

// WeightsShow prints the target features and weights a mood/activity preset
// resolves to. Without arguments it lists the known presets instead.
func (r *Runner) WeightsShow(ctx context.Context, cmd *cli.Command) error {
	mood := cmd.String("mood")
	activity := cmd.String("activity")

	if mood == "" && activity == "" {
		r.writePlain("Moods: %s\n", strings.Join(tasks.Moods(), ", "))
		r.writePlain("Activities: %s\n\n", strings.Join(tasks.Activities(), ", "))
		r.writePlain("Use --mood or --activity to inspect a preset.\n")
		return nil
	}

	preset := tasks.PresetFor(mood, activity)

	if cmd.Bool("json") {
		return r.writeJSON(preset, cmd.Bool("pretty"))
	}

	parts := []string{}
	if mood != "" {
		parts = append(parts, mood)
	}
	if activity != "" {
		parts = append(parts, activity)
	}
	r.writePlainHeader("Preset: " + strings.Join(parts, " + "))

	r.writePlain("%-18s %8s %8s\n", "feature", "target", "weight")
	targets := preset.Target.Vector()
	weights := preset.Weights.Vector()
	for i, key := range models.FeatureKeys {
		r.writePlain("%-18s %8.2f %8.2f\n", key, targets[i], weights[i])
	}
	r.writePlain("%-18s %8s %8.2f\n", "personalization", "", preset.Weights.Personalization)
	r.writePlain("%-18s %8s %8.2f\n", "cohesion", "", preset.Weights.Cohesion)

	return nil
}
