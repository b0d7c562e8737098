package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
)

// RunRepository persists generation run history: the request that started the
// run, its final status, the selected track ids, and per-stage timings.
//
// Timings and track ids are stored as JSON text columns so the runs table
// stays flat while each record keeps its structured payload.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository wraps db in a RunRepository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create assigns run a fresh id and sequence number, then inserts it.
func (r *RunRepository) Create(run *models.StoredRun) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	timings, err := marshalTimings(run.Timings())
	if err != nil {
		return err
	}

	trackIDs, err := marshalTrackIDs(run.TrackIDs())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (
			id, sequence, mood, activity, status, policy, length,
			playlist_id, timings, track_ids, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var playlistID any = run.PlaylistID()
	if playlistID == "" {
		playlistID = nil
	}

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Mood(),
		run.Activity(),
		string(run.Status()),
		run.Policy(),
		run.Length(),
		playlistID,
		timings,
		trackIDs,
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get returns the live (not soft-deleted) run with the given row id.
func (r *RunRepository) Get(id string) (*models.StoredRun, error) {
	query := `
		SELECT id, sequence, mood, activity, status, policy, length,
			playlist_id, timings, track_ids, created_at, updated_at, deleted_at
		FROM runs
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing run, typically once streaming ends and the
// final status, selection, and timings are known
func (r *RunRepository) Update(run *models.StoredRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	timings, err := marshalTimings(run.Timings())
	if err != nil {
		return err
	}

	trackIDs, err := marshalTrackIDs(run.TrackIDs())
	if err != nil {
		return err
	}

	query := `
		UPDATE runs
		SET status = ?, playlist_id = ?, timings = ?, track_ids = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	var playlistID any = run.PlaylistID()
	if playlistID == "" {
		playlistID = nil
	}

	result, err := r.db.Exec(query,
		string(run.Status()),
		playlistID,
		timings,
		trackIDs,
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return ensureAffected(result, shared.ErrRunNotFound, run.ID())
}

// Delete soft-deletes a run by stamping deleted_at.
func (r *RunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return ensureAffected(result, shared.ErrRunNotFound, id)
}

// List returns live runs matching criteria, newest first. Supported keys:
// status (string), mood (string), activity (string).
func (r *RunRepository) List(criteria map[string]any) ([]*models.StoredRun, error) {
	query := `
		SELECT id, sequence, mood, activity, status, policy, length,
			playlist_id, timings, track_ids, created_at, updated_at, deleted_at
		FROM runs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if mood, ok := criteria["mood"].(string); ok && mood != "" {
		query += " AND mood = ?"
		args = append(args, mood)
	}

	if activity, ok := criteria["activity"].(string); ok && activity != "" {
		query += " AND activity = ?"
		args = append(args, activity)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.StoredRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Recent returns the newest runs up to limit, most recent first. This backs
// the run history views in the CLI and the HTTP API.
func (r *RunRepository) Recent(limit int) ([]*models.StoredRun, error) {
	query := `
		SELECT id, sequence, mood, activity, status, policy, length,
			playlist_id, timings, track_ids, created_at, updated_at, deleted_at
		FROM runs
		WHERE deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.StoredRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// marshalTimings encodes stage timings for the JSON text column, NULL when empty
func marshalTimings(timings map[string]float64) (any, error) {
	if len(timings) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(timings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode timings: %w", err)
	}
	return string(data), nil
}

// marshalTrackIDs encodes selected track ids for the JSON text column, NULL when empty
func marshalTrackIDs(ids []string) (any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to encode track ids: %w", err)
	}
	return string(data), nil
}

// scanOne scans a single [sql.Row] into a [models.StoredRun]
func (r *RunRepository) scanOne(row *sql.Row) (*models.StoredRun, error) {
	var (
		id         string
		sequence   int
		mood       sql.NullString
		activity   sql.NullString
		status     string
		policy     sql.NullString
		length     sql.NullInt64
		playlistID sql.NullString
		timings    sql.NullString
		trackIDs   sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &mood, &activity, &status, &policy, &length,
		&playlistID, &timings, &trackIDs, &createdAt, &updatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return buildRun(
		id, sequence, mood, activity, status, policy, length,
		playlistID, timings, trackIDs, createdAt, updatedAt, deletedAt,
	)
}

// scanRow scans a row from [sql.Rows] into a [models.StoredRun]
func (r *RunRepository) scanRow(rows *sql.Rows) (*models.StoredRun, error) {
	var (
		id         string
		sequence   int
		mood       sql.NullString
		activity   sql.NullString
		status     string
		policy     sql.NullString
		length     sql.NullInt64
		playlistID sql.NullString
		timings    sql.NullString
		trackIDs   sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := rows.Scan(
		&id, &sequence, &mood, &activity, &status, &policy, &length,
		&playlistID, &timings, &trackIDs, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return buildRun(
		id, sequence, mood, activity, status, policy, length,
		playlistID, timings, trackIDs, createdAt, updatedAt, deletedAt,
	)
}

// buildRun assembles a [models.StoredRun] from scanned column values,
// decoding the JSON payload columns along the way
func buildRun(
	id string,
	sequence int,
	mood, activity sql.NullString,
	status string,
	policy sql.NullString,
	length sql.NullInt64,
	playlistID, timings, trackIDs sql.NullString,
	createdAt, updatedAt time.Time,
	deletedAt sql.NullTime,
) (*models.StoredRun, error) {
	run := models.NewStoredRun(sequence, mood.String, activity.String, int(length.Int64), policy.String)
	run.SetID(id)
	run.SetStatus(models.RunStatus(status))
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	if playlistID.Valid {
		run.SetPlaylistID(playlistID.String)
	}

	if timings.Valid {
		var decoded map[string]float64
		if err := json.Unmarshal([]byte(timings.String), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode timings: %w", err)
		}
		run.SetTimings(decoded)
	}

	if trackIDs.Valid {
		var decoded []string
		if err := json.Unmarshal([]byte(trackIDs.String), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode track ids: %w", err)
		}
		run.SetTrackIDs(decoded)
	}

	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
