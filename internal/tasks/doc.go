// Package tasks drives playlist generation as an ordered task pipeline with streamed progress.
//
// # Pipeline
//
// The [Engine] runs five tasks in sequence, each depending on the one before:
//
//  1. compile_track_list : Gather the candidate pool
//     - Fans out over top tracks, saved tracks, and public playlist search
//     - Deduplicates by normalized name and artist
//     - Attaches audio features in batches
//
//  2. score_candidates : Weighted scoring
//     - Ranks the pool against the target feature profile
//     - Selects a playlist with cohesion and favorite bonuses applied
//
//  3. build_kd_tree : Index candidate feature vectors for spatial search
//
//  4. find_kd_tree_nearest_neighbors : Query the index around the target profile
//
//  5. compile_final_results : Assemble one ranked playlist per strategy
//     - Optionally publishes the weighted selection to the provider
//
// A task failure stops the chain. The final event is still emitted so clients
// settle on whatever the pipeline managed to produce.
//
// # Progress Streaming
//
// The [Emitter] serializes every transition as a stream frame in wire order.
//
// Write errors latch: once the client connection is gone, every later emit
// returns the same [shared.ErrStreamConnection] and the pipeline winds down.
//
// # Presets
//
// Mood and activity names resolve to target feature profiles through
// [PresetFor]; mood wins when both are given, and unknown names fall back to
// [NeutralPreset]. [SearchQuery] turns the same inputs into a public playlist
// search string.
//
// # Implementation
//
// [Engine] runs with dependencies on:
//   - [services.Service] : Provider API client, nil for guest runs
//   - [Compiler] : Candidate pool builder with worker fan-out
//   - [TrackCache] : Optional candidate persistence (repositories.TrackRepository)
//   - [RunRecorder] : Optional run history (repositories.RunRepository)
package tasks
