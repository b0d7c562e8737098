package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/repositories"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheTracks lists the most recently cached candidate tracks.
//
// Tracks accumulate automatically during generation runs; this is the
// read-only view of what the compiler will reuse for guest pools.
func (r *Runner) CacheTracks(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewTrackRepository(db)
	tracks, err := repo.RecentWithFeatures(limit)
	if err != nil {
		return fmt.Errorf("failed to list cached tracks: %w", err)
	}

	if cmd.Bool("json") {
		out := make([]models.Candidate, 0, len(tracks))
		for _, track := range tracks {
			out = append(out, track.Candidate())
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		r.writePlain("Track cache is empty. Tracks accumulate during generation runs.\n")
		return nil
	}

	r.writePlain("Cached tracks (%d):\n\n", len(tracks))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artist(), track.Title())
		r.writePlain("   %s:%s cached %s\n", track.Service(), track.ServiceID(),
			track.CreatedAt().Format(time.DateOnly))
	}

	return nil
}

// CacheRuns lists recorded generation runs, newest first.
func (r *Runner) CacheRuns(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)
	runs, err := repo.Recent(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		out := make([]map[string]any, 0, len(runs))
		for _, run := range runs {
			out = append(out, map[string]any{
				"id":          run.ID(),
				"mood":        run.Mood(),
				"activity":    run.Activity(),
				"status":      string(run.Status()),
				"policy":      run.Policy(),
				"length":      run.Length(),
				"playlist_id": run.PlaylistID(),
				"timings":     run.Timings(),
				"track_ids":   run.TrackIDs(),
				"created_at":  run.CreatedAt(),
			})
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("No generation runs recorded yet.\n")
		return nil
	}

	r.writePlain("Generation runs (%d):\n\n", len(runs))
	for i, run := range runs {
		r.writePlain("%d. %s %s\n", i+1, runTitle(run), run.CreatedAt().Format(time.DateTime))
		r.writePlain("   Status: %s   Tracks: %d", run.Status(), len(run.TrackIDs()))
		if total := totalTiming(run.Timings()); total > 0 {
			r.writePlain("   Pipeline: %.0fms", total)
		}
		r.writePlain("\n")
		if run.PlaylistID() != "" {
			r.writePlain("   Playlist: %s\n", run.PlaylistID())
		}
	}

	return nil
}

// CacheMigrate applies pending database migrations.
func (r *Runner) CacheMigrate(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabaseRaw()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlainln("✓ Migrations applied")
	return nil
}

// CacheRollback rolls back the most recent database migration.
func (r *Runner) CacheRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabaseRaw()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Info("rolling back last migration")
	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	r.writePlainln("✓ Rolled back one migration")
	return nil
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", r.config.Database.Path, err)
	}
	return db, nil
}

// openDatabaseRaw opens the database without touching the schema, so the
// migrate and rollback commands control migrations themselves.
func (r *Runner) openDatabaseRaw() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", r.config.Database.Path, err)
	}
	return db, nil
}

func runTitle(run *models.StoredRun) string {
	switch {
	case run.Mood() != "" && run.Activity() != "":
		return run.Mood() + " + " + run.Activity()
	case run.Mood() != "":
		return run.Mood()
	case run.Activity() != "":
		return run.Activity()
	default:
		return "(no preset)"
	}
}

func totalTiming(timings map[string]float64) float64 {
	var total float64
	for _, ms := range timings {
		total += ms
	}
	return total
}
