// Package repositories implements sqlite persistence for cached tracks and
// generation run history.
//
// Every repository follows the same shape: uuid primary keys, an atomic
// per-table sequence counter advanced by [NextSequence], and soft deletes via
// deleted_at timestamps that queries filter out by default.
//
// Key Implementations:
//   - [TrackRepository] : Candidate track caching with audio features, keyed by service+service_id
//   - [RunRepository] : Generation run history with JSON-encoded timings and track selections
//   - [TrackCacheAdapter] : Bridges TrackRepository to the task engine's candidate cache
//
// Sequence numbers exist for human-readable ordering (track #42, run #15);
// everything surfaced outside the package is keyed by uuid.
package repositories
