package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
)

// trackColumns is the full tracks column list, in the order scanTrack reads it.
const trackColumns = `id, sequence, service, service_id, title, artist, album, duration,
	acousticness, danceability, energy, instrumentalness, liveness,
	loudness, speechiness, tempo, valence, created_at, updated_at, deleted_at`

// TrackRepository persists candidate tracks fetched from a provider, audio
// features included, so later runs can reuse them without refetching.
//
// Tracks are keyed by (service, service_id) with soft delete support.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository wraps db in a TrackRepository.
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create assigns track a fresh id and sequence number, then inserts it.
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	track.SetID(id)
	track.SetSequence(sequence)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (
			id, sequence, service, service_id, title, artist, album, duration,
			acousticness, danceability, energy, instrumentalness, liveness,
			loudness, speechiness, tempo, valence, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []any{
		id,
		sequence,
		track.Service(),
		track.ServiceID(),
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
	}
	args = append(args, featureArgs(track.Features())...)
	args = append(args, track.CreatedAt(), track.UpdatedAt())

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get returns the live (not soft-deleted) track with the given row id.
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = ? AND deleted_at IS NULL"
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByServiceID looks a track up by its provider identity, the
// (service, service_id) pair.
func (r *TrackRepository) GetByServiceID(service, serviceID string) (*models.PersistedTrack, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE service = ? AND service_id = ? AND deleted_at IS NULL"
	return r.scanOne(r.db.QueryRow(query, service, serviceID))
}

// Update rewrites the mutable columns of an existing track. The provider
// identity and sequence number never change after Create.
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET title = ?, artist = ?, album = ?, duration = ?,
			acousticness = ?, danceability = ?, energy = ?, instrumentalness = ?,
			liveness = ?, loudness = ?, speechiness = ?, tempo = ?, valence = ?,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	args := []any{
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
	}
	args = append(args, featureArgs(track.Features())...)
	args = append(args, now, track.ID())

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	return ensureAffected(result, shared.ErrTrackNotFound, track.ID())
}

// Delete soft-deletes a track by stamping deleted_at. The row stays in place
// so past runs referencing it keep resolving.
func (r *TrackRepository) Delete(id string) error {
	query := `
		UPDATE tracks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	return ensureAffected(result, shared.ErrTrackNotFound, id)
}

// List returns live tracks matching criteria, in insertion order. Supported
// keys: service (string), artist (string), with_features (bool).
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE deleted_at IS NULL"
	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}
	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}
	if withFeatures, ok := criteria["with_features"].(bool); ok && withFeatures {
		query += " AND acousticness IS NOT NULL"
	}

	return r.queryTracks(query+" ORDER BY sequence ASC", args...)
}

// RecentWithFeatures retrieves the most recently cached tracks that carry a
// full feature vector, newest first. This feeds guest-mode candidate pools.
func (r *TrackRepository) RecentWithFeatures(limit int) ([]*models.PersistedTrack, error) {
	query := "SELECT " + trackColumns + ` FROM tracks
		WHERE deleted_at IS NULL AND acousticness IS NOT NULL
		ORDER BY sequence DESC
		LIMIT ?`

	return r.queryTracks(query, limit)
}

// queryTracks runs a multi-row SELECT over trackColumns and collects the
// results.
func (r *TrackRepository) queryTracks(query string, args ...any) ([]*models.PersistedTrack, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// featureArgs expands an optional feature vector into the nine feature
// column values, all NULL when the track has no features.
func featureArgs(f *models.Features) []any {
	if f == nil {
		return []any{nil, nil, nil, nil, nil, nil, nil, nil, nil}
	}
	return []any{
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

// trackRow holds one scanned tracks row. The feature columns are nullable as
// a group: acousticness standing in for all nine, a track either has a full
// vector or none.
type trackRow struct {
	id               string
	sequence         int
	service          string
	serviceID        string
	title            string
	artist           string
	album            string
	duration         int
	acousticness     sql.NullFloat64
	danceability     sql.NullFloat64
	energy           sql.NullFloat64
	instrumentalness sql.NullFloat64
	liveness         sql.NullFloat64
	loudness         sql.NullFloat64
	speechiness      sql.NullFloat64
	tempo            sql.NullFloat64
	valence          sql.NullFloat64
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        sql.NullTime
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTrack reads a trackColumns row. Scan errors come back unwrapped so
// callers can classify sql.ErrNoRows.
func scanTrack(s rowScanner) (*trackRow, error) {
	var rw trackRow
	err := s.Scan(
		&rw.id, &rw.sequence, &rw.service, &rw.serviceID, &rw.title, &rw.artist, &rw.album, &rw.duration,
		&rw.acousticness, &rw.danceability, &rw.energy, &rw.instrumentalness, &rw.liveness,
		&rw.loudness, &rw.speechiness, &rw.tempo, &rw.valence, &rw.createdAt, &rw.updatedAt, &rw.deletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rw, nil
}

// track rebuilds the domain model from the scanned row.
func (rw *trackRow) track() *models.PersistedTrack {
	track := models.NewPersistedTrack(rw.sequence, rw.service, rw.serviceID, models.Track{
		ID:       rw.serviceID,
		Title:    rw.title,
		Artist:   rw.artist,
		Album:    rw.album,
		Duration: rw.duration,
	})
	track.SetID(rw.id)
	track.SetCreatedAt(rw.createdAt)
	track.SetUpdatedAt(rw.updatedAt)

	if rw.acousticness.Valid {
		track.SetFeatures(&models.Features{
			Acousticness:     rw.acousticness.Float64,
			Danceability:     rw.danceability.Float64,
			Energy:           rw.energy.Float64,
			Instrumentalness: rw.instrumentalness.Float64,
			Liveness:         rw.liveness.Float64,
			Loudness:         rw.loudness.Float64,
			Speechiness:      rw.speechiness.Float64,
			Tempo:            rw.tempo.Float64,
			Valence:          rw.valence.Float64,
		})
	}
	if rw.deletedAt.Valid {
		track.SetDeletedAt(&rw.deletedAt.Time)
	}

	return track
}

func (r *TrackRepository) scanOne(row *sql.Row) (*models.PersistedTrack, error) {
	rw, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return rw.track(), nil
}

func (r *TrackRepository) scanRow(rows *sql.Rows) (*models.PersistedTrack, error) {
	rw, err := scanTrack(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return rw.track(), nil
}
