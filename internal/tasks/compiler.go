package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/services"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Source fetch limits. The provider caps pages at 50; playlist seeding stays
// small so one noisy public playlist cannot dominate the pool.
const (
	topTrackLimit       = 50
	savedTrackLimit     = 50
	playlistSearchLimit = 10
	playlistSourceLimit = 3
	playlistTrackLimit  = 30

	defaultCompileWorkers = 4
	maxCompileWorkers     = 8
)

// TrackCache persists compiled candidates between runs. Compile writes
// through to it after a successful pool build and reads from it for guest
// runs, so generation keeps working logged out once one authenticated run
// has happened.
type TrackCache interface {
	SaveCandidates(candidates []models.Candidate) error
	CachedCandidates(limit int) ([]models.Candidate, error)
}

// CompileOptions shapes one pool build.
type CompileOptions struct {
	Mood          string
	Activity      string
	FavoriteSongs []string
}

// Compiler assembles the candidate pool for a generation run by fanning in
// tracks from several library sources, deduplicating them, and attaching
// audio features.
type Compiler struct {
	svc     services.Service
	cache   TrackCache
	logger  *log.Logger
	limiter *rate.Limiter
	workers int
}

// NewCompiler creates a compiler. A nil service puts the compiler in guest
// mode: pools come from the cache, or a deterministic sample set when the
// cache is empty. A nil cache disables persistence.
func NewCompiler(svc services.Service, cache TrackCache, logger *log.Logger) *Compiler {
	if logger == nil {
		logger = log.Default()
	}
	return &Compiler{
		svc:     svc,
		cache:   cache,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		workers: defaultCompileWorkers,
	}
}

type poolSource struct {
	name  string
	fetch func(ctx context.Context) ([]models.Track, error)
}

type sourceResult struct {
	name   string
	tracks []models.Track
	err    error
}

// Compile builds the deduplicated, feature-complete candidate pool. The
// report callback, when non-nil, is invoked once per source with the number
// of new tracks that source contributed. The returned counts map has one
// entry per source.
func (c *Compiler) Compile(ctx context.Context, opts CompileOptions, report func(source string, added int)) ([]models.Candidate, map[string]int, error) {
	if c.svc == nil {
		return c.guestPool(report)
	}

	sources := c.sources(opts)

	jobs := make(chan poolSource, len(sources))
	results := make(chan sourceResult, len(sources))

	workers := min(c.workers, maxCompileWorkers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.fetchWorker(ctx, &wg, jobs, results)
	}

	for _, src := range sources {
		jobs <- src
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	seen := make(map[string]bool)
	counts := make(map[string]int, len(sources))
	var tracks []models.Track
	var firstErr error

	for res := range results {
		if res.err != nil {
			c.logger.Warn("Candidate source failed", "source", res.name, "error", res.err)
			if firstErr == nil {
				firstErr = res.err
			}
			counts[res.name] = 0
			continue
		}

		added := 0
		for _, track := range res.tracks {
			if track.ID == "" {
				continue
			}
			key := shared.NormalizeTrackKey(track.Title, track.Artist)
			if seen[key] {
				continue
			}
			seen[key] = true
			tracks = append(tracks, track)
			added++
		}
		counts[res.name] = added

		if report != nil {
			report(res.name, added)
		}
	}

	// Every source failing is a real error; a few failing just thins the pool.
	if len(tracks) == 0 && firstErr != nil {
		return nil, counts, fmt.Errorf("compiling candidate pool: %w", firstErr)
	}

	pool, err := c.attachFeatures(ctx, tracks)
	if err != nil {
		return nil, counts, err
	}

	if c.cache != nil {
		if err := c.cache.SaveCandidates(pool); err != nil {
			c.logger.Warn("Failed to cache candidate pool", "error", err)
		}
	}

	return pool, counts, nil
}

// sources lists the library fan-in for an authenticated run: listening
// history across three horizons, the saved library, and public playlists
// matching the mood/activity.
func (c *Compiler) sources(opts CompileOptions) []poolSource {
	return []poolSource{
		{name: "top_tracks_short", fetch: func(ctx context.Context) ([]models.Track, error) {
			return c.svc.TopTracks(ctx, "short_term", topTrackLimit)
		}},
		{name: "top_tracks_medium", fetch: func(ctx context.Context) ([]models.Track, error) {
			return c.svc.TopTracks(ctx, "medium_term", topTrackLimit)
		}},
		{name: "top_tracks_long", fetch: func(ctx context.Context) ([]models.Track, error) {
			return c.svc.TopTracks(ctx, "long_term", topTrackLimit)
		}},
		{name: "saved_tracks", fetch: func(ctx context.Context) ([]models.Track, error) {
			return c.svc.SavedTracks(ctx, savedTrackLimit, 0)
		}},
		{name: "playlists", fetch: func(ctx context.Context) ([]models.Track, error) {
			return c.playlistTracks(ctx, opts)
		}},
	}
}

func (c *Compiler) fetchWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan poolSource, results chan<- sourceResult) {
	defer wg.Done()

	for job := range jobs {
		if err := c.limiter.Wait(ctx); err != nil {
			results <- sourceResult{name: job.name, err: err}
			continue
		}

		tracks, err := job.fetch(ctx)
		results <- sourceResult{name: job.name, tracks: tracks, err: err}
	}
}

// playlistTracks searches public playlists for the mood/activity and pulls a
// bounded slice of tracks from the best matches.
func (c *Compiler) playlistTracks(ctx context.Context, opts CompileOptions) ([]models.Track, error) {
	query := SearchQuery(opts.Mood, opts.Activity)

	playlists, err := c.svc.SearchPlaylists(ctx, query, playlistSearchLimit)
	if err != nil {
		return nil, err
	}

	var tracks []models.Track
	for i, playlist := range playlists {
		if i >= playlistSourceLimit {
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return tracks, err
		}

		playlistTracks, err := c.svc.PlaylistTracks(ctx, playlist.ID, playlistTrackLimit, 0)
		if err != nil {
			c.logger.Warn("Playlist tracks fetch failed", "playlist", playlist.ID, "error", err)
			continue
		}
		tracks = append(tracks, playlistTracks...)
	}
	return tracks, nil
}

// attachFeatures resolves audio features for the deduplicated tracks and
// keeps only tracks the provider can describe.
func (c *Compiler) attachFeatures(ctx context.Context, tracks []models.Track) ([]models.Candidate, error) {
	if len(tracks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(tracks))
	for i, track := range tracks {
		ids[i] = track.ID
	}

	features, err := c.svc.AudioFeatures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching audio features: %w", err)
	}

	pool := make([]models.Candidate, 0, len(tracks))
	for _, track := range tracks {
		f, ok := features[track.ID]
		if !ok {
			continue
		}
		pool = append(pool, models.Candidate{
			ID:       track.ID,
			Name:     track.Title,
			Artist:   track.Artist,
			Features: f,
		})
	}
	return pool, nil
}

// guestPool serves logged-out generation: cached candidates when available,
// otherwise the built-in sample pool.
func (c *Compiler) guestPool(report func(source string, added int)) ([]models.Candidate, map[string]int, error) {
	if c.cache != nil {
		cached, err := c.cache.CachedCandidates(samplePoolSize * 4)
		if err != nil {
			c.logger.Warn("Reading cached candidates failed", "error", err)
		}
		if len(cached) > 0 {
			if report != nil {
				report("cache", len(cached))
			}
			return cached, map[string]int{"cache": len(cached)}, nil
		}
	}

	pool := samplePool()
	if report != nil {
		report("sample", len(pool))
	}
	return pool, map[string]int{"sample": len(pool)}, nil
}

const samplePoolSize = 48

var (
	sampleAdjectives = []string{"Neon", "Velvet", "Paper", "Silver", "Hollow", "Electric", "Quiet", "Golden"}
	sampleNouns      = []string{"Tide", "Static", "Skyline", "Echo", "Bloom", "Horizon", "Parade", "Motel"}
	sampleArtists    = []string{
		"The Midnight Office",
		"Glass Commute",
		"Fern & Field",
		"Analog Weather",
		"Late Cascades",
		"Roman Holiday Club",
	}
)

// samplePool synthesizes a fixed-seed demo pool so identical guest requests
// select identical playlists.
func samplePool() []models.Candidate {
	rng := rand.New(rand.NewSource(7))

	pool := make([]models.Candidate, samplePoolSize)
	for i := range pool {
		pool[i] = models.Candidate{
			ID:     fmt.Sprintf("sample-%03d", i+1),
			Name:   fmt.Sprintf("%s %s", sampleAdjectives[i%len(sampleAdjectives)], sampleNouns[(i/len(sampleAdjectives)+i)%len(sampleNouns)]),
			Artist: sampleArtists[i%len(sampleArtists)],
			Features: models.Features{
				Acousticness:     rng.Float64(),
				Danceability:     rng.Float64(),
				Energy:           rng.Float64(),
				Instrumentalness: rng.Float64(),
				Liveness:         rng.Float64(),
				Loudness:         -30 + rng.Float64()*25,
				Speechiness:      rng.Float64() * 0.5,
				Tempo:            60 + rng.Float64()*120,
				Valence:          rng.Float64(),
			},
		}
	}
	return pool
}
