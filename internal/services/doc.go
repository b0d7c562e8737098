// Package services defines the [Service] interface for music catalog providers and implements it for Spotify.
//
// # Service Interface
//
// Catalog providers implement a common abstraction so candidate pool building works uniformly across providers.
//
// # Spotify Implementation
//
// [SpotifyService] is a pure API client. It receives a bearer credential via
// Authenticate and never refreshes tokens itself; expiry surfaces as
// [shared.ErrTokenExpired] and the session layer decides what to do about it.
//
// Requests are throttled with a token bucket to stay inside the provider's
// rate limits. Batch endpoints (audio features, playlist additions) are
// chunked to the API's documented maximums.
//
// # Raw API Access
//
// [APIService] is a thin client for a running generation server, used by the
// CLI's api command for health checks and ad hoc requests.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : provider rejected the access token
//   - [shared.ErrAPIRequest] : HTTP request failed or was refused
//   - [shared.ErrServiceUnavailable] : provider returned a server error
//   - [shared.ErrInvalidArgument] : caller passed an unusable parameter
//
// # API Mappings
//
// Provider JSON is converted to the neutral model types:
//   - [SpotifyTrack] → [models.Track] with artist names joined and duration in seconds
//   - [SpotifyAudioFeatures] → [models.Features] keyed by track id
//   - [SpotifySimplePlaylist] → [models.Playlist] with the public web URL
package services
