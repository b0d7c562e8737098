package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Jack-Penn/AlgoRhythms/internal/formatter"
	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/scoring"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/Jack-Penn/AlgoRhythms/internal/stream"
	"github.com/Jack-Penn/AlgoRhythms/internal/tasks"
	"github.com/urfave/cli/v3"
)

// GenerateRun requests playlists from the generation API and renders the
// stream as it progresses.
//
// The mood/activity preset is resolved locally and sent as the request's
// target features and weights, so --target and --weights overrides behave
// the same against any server.
func (r *Runner) GenerateRun(ctx context.Context, cmd *cli.Command) error {
	mood := cmd.String("mood")
	activity := cmd.String("activity")
	length := cmd.Int("length")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	exportDir := cmd.String("export")

	if length <= 0 {
		length = r.config.Generation.Length
	}

	preset := tasks.PresetFor(mood, activity)
	params := stream.Params{
		Mood:          mood,
		Activity:      activity,
		Length:        length,
		FavoriteSongs: splitList(cmd.String("favorites")),
		Target:        preset.Target,
		Weights:       preset.Weights,
	}

	if raw := cmd.String("target"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Target); err != nil {
			return fmt.Errorf("%w: --target is not valid JSON: %v", shared.ErrInvalidFlag, err)
		}
	}
	if raw := cmd.String("weights"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Weights); err != nil {
			return fmt.Errorf("%w: --weights is not valid JSON: %v", shared.ErrInvalidFlag, err)
		}
	}

	r.logger.Info("starting generation run", "mood", mood, "activity", activity, "length", length)
	r.writePlain("Starting playlist generation...\n")
	if mood != "" {
		r.writePlain("Mood: %s\n", mood)
	}
	if activity != "" {
		r.writePlain("Activity: %s\n", activity)
	}
	r.writePlain("Length: %d tracks\n", length)

	run, err := r.startRun(ctx, params)
	if err != nil {
		return err
	}

	labels := map[string]string{}
	for event := range run.Updates() {
		switch event.Type {
		case stream.EventInitial:
			r.writePlain("\n%d tasks queued\n\n", len(event.Tasks))
			for _, task := range event.Tasks {
				labels[task.ID] = task.Label
			}
		case stream.EventUpdate:
			label := labels[event.TaskID]
			if label == "" {
				label = event.TaskID
			}
			switch event.Status {
			case stream.StatusRunning:
				r.writePlain("⟳ %s...\n", label)
			case stream.StatusProgress:
				if message := progressMessage(event.Data); message != "" {
					r.writePlain("   %s\n", message)
				}
			case stream.StatusCompleted:
				r.writePlain("✓ %s (%s)\n", label, event.Duration)
			case stream.StatusFailed:
				r.writePlain("✗ %s: %s\n", label, event.Error)
			}
		}
	}

	if err := run.Err(); err != nil {
		return err
	}

	final := run.Final()
	if final == nil {
		return fmt.Errorf("%w: run settled without a final result", shared.ErrProtocolViolation)
	}

	if useJSON {
		return r.writeJSON(final, pretty)
	}

	r.writePlain("\n")
	r.writePlainHeader("Generation Complete!")
	r.renderFinal(final)

	if exportDir != "" {
		result, err := formatter.WriteMarkdownExport(final, exportDir, formatter.Title(mood, activity))
		if err != nil {
			return fmt.Errorf("failed to export playlists: %w", err)
		}
		r.writePlain("\n✓ Exported to %s\n", strings.Join(result.Files, ", "))
	}

	return nil
}

// startRun opens the generation stream, refreshing the session once when the
// access token has expired and a refresh token is available.
func (r *Runner) startRun(ctx context.Context, params stream.Params) (*stream.Run, error) {
	run, err := r.stream.Start(ctx, params)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, shared.ErrTokenExpired) {
		return nil, err
	}

	r.writePlain("⚠ Access token expired. Refreshing...\n")
	if _, refreshErr := r.session.Refresh(ctx); refreshErr != nil {
		return nil, fmt.Errorf("refresh failed: %w", refreshErr)
	}

	return r.stream.Start(ctx, params)
}

// renderFinal prints each strategy's selection and the provider playlist id
// when one was created.
func (r *Runner) renderFinal(final *models.FinalResult) {
	for _, strategy := range formatter.StrategyOrder(final) {
		playlist := final.Playlists[strategy]
		r.writePlain("\n%s (%d tracks, %s)\n", formatter.StrategyTitle(strategy),
			len(playlist.Tracks), scoring.FormatMS(playlist.GenerationTime))
		for i, track := range playlist.Tracks {
			r.writePlain("%d. %s - %s", i+1, track.Artist, track.Name)
			if track.Score != 0 {
				r.writePlain(" [%.1f]", track.Score)
			}
			r.writePlain("\n")
		}
	}

	if final.PlaylistID != "" {
		r.writePlain("\n✓ Playlist created on Spotify: %s\n", final.PlaylistID)
	}
}

// progressMessage pulls the human-readable message out of a progress frame's
// data payload.
func progressMessage(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Message
}
