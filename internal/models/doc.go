// Package models defines domain entities and persistence interfaces for the AlgoRhythms playlist generation service.
//
// The package contains three categories of types:
//
// 1. Session types: credentials produced by the PKCE flow
//   - [Credential] : Bearer token with absolute expiry, replaced wholesale on refresh
//
// 2. Generation types: the data flowing through a generation run
//   - [Features] : Nine-dimensional audio feature vector (seven unit-interval, tempo in BPM, loudness in dB)
//   - [Weights] : Per-feature weights plus the personalization and cohesion weights
//   - [Candidate] : A track under consideration for selection, with its derived score
//   - [Task] / [TaskMap] : Insertion-ordered task state for one run, updated from stream events
//   - [FinalResult] : Per-strategy ranked selections and the provider playlist id
//
// 3. Persistent entities: database-backed models with full lifecycle management
//   - [PersistedTrack] : Cached tracks with their audio features
//   - [StoredRun] : Generation run history with strategy timings
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
