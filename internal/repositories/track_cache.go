package repositories

import (
	"fmt"
	"strings"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
)

// TrackCacheAdapter implements tasks.TrackCache on top of TrackRepository.
//
// Compiled candidates are persisted with their feature vectors so guest runs
// can rank real tracks instead of the built-in sample pool. Duplicates are
// silently ignored via the service+service_id constraint.
type TrackCacheAdapter struct {
	repo    *TrackRepository
	service string
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter caching tracks under the given service name
func NewTrackCacheAdapter(repo *TrackRepository, service string) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo, service: service}
}

// SaveCandidates persists a compiled candidate pool.
// Candidates already cached are skipped (deduplication).
// Only returns errors for actual failures (not constraint violations).
func (a *TrackCacheAdapter) SaveCandidates(candidates []models.Candidate) error {
	for _, candidate := range candidates {
		if candidate.ID == "" {
			continue
		}

		existing, err := a.repo.GetByServiceID(a.service, candidate.ID)
		if err == nil && existing != nil {
			continue
		}

		dto := models.Track{
			ID:     candidate.ID,
			Title:  candidate.Name,
			Artist: candidate.Artist,
		}

		track := models.NewPersistedTrack(0, a.service, candidate.ID, dto)
		features := candidate.Features
		track.SetFeatures(&features)

		if err := a.repo.Create(track); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				continue
			}
			return fmt.Errorf("failed to cache candidate: %w", err)
		}
	}

	return nil
}

// CachedCandidates returns up to limit cached tracks as scoring candidates,
// newest first. Tracks without feature vectors are excluded.
func (a *TrackCacheAdapter) CachedCandidates(limit int) ([]models.Candidate, error) {
	tracks, err := a.repo.RecentWithFeatures(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached candidates: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(tracks))
	for _, track := range tracks {
		candidates = append(candidates, track.Candidate())
	}
	return candidates, nil
}
