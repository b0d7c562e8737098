// package services defines interface Service for music catalog backends
package services

import (
	"context"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
)

// Service defines the interface for music catalog providers that supply
// candidate tracks, audio features, and playlist creation.
type Service interface {
	// Authenticate installs the bearer credential used for subsequent
	// requests. Returns an error when the credential is unusable.
	Authenticate(ctx context.Context, cred *models.Credential) error

	// Profile retrieves the authenticated user's profile.
	Profile(ctx context.Context) (*models.Profile, error)

	// SearchTracks searches the catalog for tracks matching the query.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)

	// TopTracks retrieves the user's most played tracks over the given time
	// range (short_term, medium_term or long_term).
	TopTracks(ctx context.Context, timeRange string, limit int) ([]models.Track, error)

	// SavedTracks retrieves a page of the user's library.
	SavedTracks(ctx context.Context, limit, offset int) ([]models.Track, error)

	// SearchPlaylists searches public playlists matching the query.
	SearchPlaylists(ctx context.Context, query string, limit int) ([]models.Playlist, error)

	// PlaylistTracks retrieves a page of a playlist's tracks.
	PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) ([]models.Track, error)

	// AudioFeatures retrieves the feature vector for each track id, keyed by
	// id. Ids the provider cannot resolve are absent from the result.
	AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.Features, error)

	// CreatePlaylist creates an empty playlist owned by the authenticated
	// user.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error)

	// AddTracks appends tracks to a playlist in order.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}
