package models

import (
	"fmt"
	"time"
)

// PersistedTrack is a cached track with optional audio features, keyed by
// the provider it came from.
type PersistedTrack struct {
	id        string
	sequence  int
	service   string
	serviceID string
	track     Track
	features  *Features
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTrack creates a PersistedTrack from a service-layer Track DTO.
// The id is assigned by the repository on create.
func NewPersistedTrack(sequence int, service, serviceID string, dto Track) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{
		sequence:  sequence,
		service:   service,
		serviceID: serviceID,
		track:     dto,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *PersistedTrack) ID() string            { return t.id }
func (t *PersistedTrack) Sequence() int         { return t.sequence }
func (t *PersistedTrack) Service() string       { return t.service }
func (t *PersistedTrack) ServiceID() string     { return t.serviceID }
func (t *PersistedTrack) Title() string         { return t.track.Title }
func (t *PersistedTrack) Artist() string        { return t.track.Artist }
func (t *PersistedTrack) Album() string         { return t.track.Album }
func (t *PersistedTrack) Duration() int         { return t.track.Duration }
func (t *PersistedTrack) Track() Track          { return t.track }
func (t *PersistedTrack) Features() *Features   { return t.features }
func (t *PersistedTrack) CreatedAt() time.Time  { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time  { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

func (t *PersistedTrack) SetID(id string)            { t.id = id }
func (t *PersistedTrack) SetSequence(seq int)        { t.sequence = seq }
func (t *PersistedTrack) SetFeatures(f *Features)    { t.features = f }
func (t *PersistedTrack) SetCreatedAt(ts time.Time)  { t.createdAt = ts }
func (t *PersistedTrack) SetUpdatedAt(ts time.Time)  { t.updatedAt = ts }
func (t *PersistedTrack) SetDeletedAt(ts *time.Time) { t.deletedAt = ts }

// Validate checks the track has the fields every cached row needs.
func (t *PersistedTrack) Validate() error {
	if t.service == "" {
		return fmt.Errorf("track service is required")
	}
	if t.serviceID == "" {
		return fmt.Errorf("track service id is required")
	}
	if t.track.Title == "" {
		return fmt.Errorf("track title is required")
	}
	return nil
}

// Candidate converts the cached track into a scoring candidate. Tracks
// without features get the zero vector.
func (t *PersistedTrack) Candidate() Candidate {
	c := Candidate{
		ID:     t.serviceID,
		Name:   t.track.Title,
		Artist: t.track.Artist,
	}
	if t.features != nil {
		c.Features = *t.features
	}
	return c
}

// StoredRun is one generation run's history record: what was asked for, how
// it ended, which tracks were selected, and how long each strategy took.
type StoredRun struct {
	id         string
	sequence   int
	mood       string
	activity   string
	status     RunStatus
	policy     string
	length     int
	playlistID string
	timings    map[string]float64
	trackIDs   []string
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewStoredRun creates a StoredRun for a generation that is about to start.
func NewStoredRun(sequence int, mood, activity string, length int, policy string) *StoredRun {
	now := time.Now()
	return &StoredRun{
		sequence:  sequence,
		mood:      mood,
		activity:  activity,
		status:    RunStreaming,
		policy:    policy,
		length:    length,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *StoredRun) ID() string                  { return r.id }
func (r *StoredRun) Sequence() int               { return r.sequence }
func (r *StoredRun) Mood() string                { return r.mood }
func (r *StoredRun) Activity() string            { return r.activity }
func (r *StoredRun) Status() RunStatus           { return r.status }
func (r *StoredRun) Policy() string              { return r.policy }
func (r *StoredRun) Length() int                 { return r.length }
func (r *StoredRun) PlaylistID() string          { return r.playlistID }
func (r *StoredRun) Timings() map[string]float64 { return r.timings }
func (r *StoredRun) TrackIDs() []string          { return r.trackIDs }
func (r *StoredRun) CreatedAt() time.Time        { return r.createdAt }
func (r *StoredRun) UpdatedAt() time.Time        { return r.updatedAt }
func (r *StoredRun) DeletedAt() *time.Time       { return r.deletedAt }

func (r *StoredRun) SetID(id string)                 { r.id = id }
func (r *StoredRun) SetSequence(seq int)             { r.sequence = seq }
func (r *StoredRun) SetStatus(s RunStatus)           { r.status = s }
func (r *StoredRun) SetPlaylistID(id string)         { r.playlistID = id }
func (r *StoredRun) SetTimings(t map[string]float64) { r.timings = t }
func (r *StoredRun) SetTrackIDs(ids []string)        { r.trackIDs = ids }
func (r *StoredRun) SetCreatedAt(ts time.Time)       { r.createdAt = ts }
func (r *StoredRun) SetUpdatedAt(ts time.Time)       { r.updatedAt = ts }
func (r *StoredRun) SetDeletedAt(ts *time.Time)      { r.deletedAt = ts }

// Validate checks the run record is storable.
func (r *StoredRun) Validate() error {
	switch r.status {
	case RunIdle, RunStreaming, RunCompleted, RunError:
	default:
		return fmt.Errorf("invalid run status %q", r.status)
	}
	if r.length < 0 {
		return fmt.Errorf("run length cannot be negative")
	}
	return nil
}
