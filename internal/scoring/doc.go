// Package scoring ranks candidate tracks against a target feature profile
// and selects the subset that becomes the generated playlist.
//
// The pipeline is pure: every function is deterministic for identical inputs,
// including tie-breaks, so a selection can be reproduced exactly.
//
// Key pieces:
//   - [Normalize] : maps tempo and loudness onto the unit interval using their fixed domains so all nine feature dimensions are commensurable
//   - [Score] / [Rank] : per-feature weighted contributions under a named [Policy], plus the personalization bonus for favorite-adjacent candidates
//   - [Select] : greedy length-constrained selection with the cohesion adjustment and a base-score cutoff
//   - [KDTree] / [BruteForceNearest] : nearest-neighbor strategies over normalized feature vectors
//   - [PoolStats] / [NormalizePool] : per-feature distribution summaries and min-max rescaling for raw pools
package scoring
