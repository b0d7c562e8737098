package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/charmbracelet/log"
)

// stubCatalog implements [services.Service] for pipeline tests. Error fields
// inject failures per call family; recorded calls are guarded by the mutex
// because the compiler fans out across goroutines. A nil features map
// resolves every id to a mid-range vector, a non-nil map resolves only the
// ids it contains.
type stubCatalog struct {
	mu sync.Mutex

	top         map[string][]models.Track
	topErrs     map[string]error
	saved       []models.Track
	savedErr    error
	playlists   []models.Playlist
	searchErr   error
	tracksFor   map[string][]models.Track
	tracksErrs  map[string]error
	features    map[string]models.Features
	featuresErr error
	createErr   error
	addErr      error
	blockAll    bool

	searchQueries []string
	trackCalls    []string
	featureCalls  [][]string
	createdNames  []string
	added         map[string][]string
}

func (s *stubCatalog) block(ctx context.Context) error {
	if !s.blockAll {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubCatalog) Authenticate(ctx context.Context, cred *models.Credential) error { return nil }

func (s *stubCatalog) Profile(ctx context.Context) (*models.Profile, error) {
	return &models.Profile{ID: "stub-user", DisplayName: "Stub User"}, nil
}

func (s *stubCatalog) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	return nil, nil
}

func (s *stubCatalog) TopTracks(ctx context.Context, timeRange string, limit int) ([]models.Track, error) {
	if err := s.block(ctx); err != nil {
		return nil, err
	}
	if err := s.topErrs[timeRange]; err != nil {
		return nil, err
	}
	return s.top[timeRange], nil
}

func (s *stubCatalog) SavedTracks(ctx context.Context, limit, offset int) ([]models.Track, error) {
	if err := s.block(ctx); err != nil {
		return nil, err
	}
	if s.savedErr != nil {
		return nil, s.savedErr
	}
	return s.saved, nil
}

func (s *stubCatalog) SearchPlaylists(ctx context.Context, query string, limit int) ([]models.Playlist, error) {
	if err := s.block(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.searchQueries = append(s.searchQueries, query)
	s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.playlists, nil
}

func (s *stubCatalog) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) ([]models.Track, error) {
	s.mu.Lock()
	s.trackCalls = append(s.trackCalls, playlistID)
	s.mu.Unlock()
	if err := s.tracksErrs[playlistID]; err != nil {
		return nil, err
	}
	return s.tracksFor[playlistID], nil
}

func (s *stubCatalog) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.Features, error) {
	s.mu.Lock()
	s.featureCalls = append(s.featureCalls, trackIDs)
	s.mu.Unlock()
	if s.featuresErr != nil {
		return nil, s.featuresErr
	}

	out := make(map[string]models.Features, len(trackIDs))
	for _, id := range trackIDs {
		if s.features == nil {
			out[id] = models.Features{Energy: 0.5, Tempo: 120, Loudness: -12}
			continue
		}
		if f, ok := s.features[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (s *stubCatalog) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	s.mu.Lock()
	s.createdNames = append(s.createdNames, name)
	s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Playlist{ID: "created-1", Name: name}, nil
}

func (s *stubCatalog) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	s.mu.Lock()
	if s.added == nil {
		s.added = make(map[string][]string)
	}
	s.added[playlistID] = append(s.added[playlistID], trackIDs...)
	s.mu.Unlock()
	return s.addErr
}

func (s *stubCatalog) Name() string { return "stub" }

// stubCache implements [TrackCache] for testing.
type stubCache struct {
	saved   [][]models.Candidate
	cached  []models.Candidate
	saveErr error
	loadErr error
}

func (s *stubCache) SaveCandidates(candidates []models.Candidate) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, candidates)
	return nil
}

func (s *stubCache) CachedCandidates(limit int) ([]models.Candidate, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if limit > 0 && limit < len(s.cached) {
		return s.cached[:limit], nil
	}
	return s.cached, nil
}

func discardLogger() *log.Logger { return log.New(io.Discard) }

func testTrack(id, title, artist string) models.Track {
	return models.Track{ID: id, Title: title, Artist: artist}
}

func TestCompiler(t *testing.T) {
	ctx := context.Background()

	t.Run("NewCompiler", func(t *testing.T) {
		t.Run("fills in defaults", func(t *testing.T) {
			c := NewCompiler(nil, nil, nil)
			if c.logger == nil {
				t.Error("expected a default logger")
			}
			if c.workers != defaultCompileWorkers {
				t.Errorf("expected %d workers, got %d", defaultCompileWorkers, c.workers)
			}
			if c.limiter == nil {
				t.Error("expected a rate limiter")
			}
		})
	})

	t.Run("Compile", func(t *testing.T) {
		t.Run("builds a deduplicated pool across sources", func(t *testing.T) {
			svc := &stubCatalog{
				top: map[string][]models.Track{
					"short_term":  {testTrack("1", "Alpha", "Artist A"), testTrack("2", "Beta", "Artist B")},
					"medium_term": {testTrack("1b", "Alpha", "Artist A"), testTrack("3", "Gamma", "Artist C")},
				},
				saved:     []models.Track{testTrack("4", "Delta", "Artist D"), testTrack("", "Ghost", "Artist X")},
				playlists: []models.Playlist{{ID: "pl-1", Name: "Calm Mix"}},
				tracksFor: map[string][]models.Track{
					"pl-1": {testTrack("5", "Epsilon", "Artist E")},
				},
			}

			reported := map[string]int{}
			c := NewCompiler(svc, nil, discardLogger())
			pool, counts, err := c.Compile(ctx, CompileOptions{Mood: "calm"}, func(source string, added int) {
				reported[source] = added
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(pool) != 5 {
				t.Errorf("expected 5 candidates, got %d", len(pool))
			}
			if len(counts) != 5 {
				t.Errorf("expected counts for 5 sources, got %v", counts)
			}

			total := 0
			for _, n := range counts {
				total += n
			}
			if total != 5 {
				t.Errorf("expected source counts to sum to 5, got %d from %v", total, counts)
			}
			if counts["saved_tracks"] != 1 {
				t.Errorf("expected saved_tracks to add 1 after skipping the id-less track, got %d", counts["saved_tracks"])
			}
			if len(reported) != 5 {
				t.Errorf("expected one report per source, got %v", reported)
			}

			names := map[string]bool{}
			for _, cand := range pool {
				if names[cand.Name] {
					t.Errorf("duplicate candidate %q survived dedup", cand.Name)
				}
				names[cand.Name] = true
			}

			if len(svc.searchQueries) != 1 || svc.searchQueries[0] != "calm playlist" {
				t.Errorf("expected one playlist search for %q, got %v", "calm playlist", svc.searchQueries)
			}
		})

		t.Run("caps how many playlists seed the pool", func(t *testing.T) {
			svc := &stubCatalog{
				playlists: []models.Playlist{{ID: "pl-1"}, {ID: "pl-2"}, {ID: "pl-3"}, {ID: "pl-4"}, {ID: "pl-5"}},
				tracksFor: map[string][]models.Track{
					"pl-1": {testTrack("1", "One", "Artist A")},
					"pl-2": {testTrack("2", "Two", "Artist B")},
					"pl-3": {testTrack("3", "Three", "Artist C")},
					"pl-4": {testTrack("4", "Four", "Artist D")},
					"pl-5": {testTrack("5", "Five", "Artist E")},
				},
			}

			c := NewCompiler(svc, nil, discardLogger())
			pool, _, err := c.Compile(ctx, CompileOptions{}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(svc.trackCalls) != playlistSourceLimit {
				t.Errorf("expected %d playlist fetches, got %v", playlistSourceLimit, svc.trackCalls)
			}
			if len(pool) != playlistSourceLimit {
				t.Errorf("expected %d candidates, got %d", playlistSourceLimit, len(pool))
			}
		})

		t.Run("skips a playlist that fails to load", func(t *testing.T) {
			svc := &stubCatalog{
				playlists:  []models.Playlist{{ID: "pl-1"}, {ID: "pl-2"}},
				tracksErrs: map[string]error{"pl-1": fmt.Errorf("%w: gone", shared.ErrAPIRequest)},
				tracksFor: map[string][]models.Track{
					"pl-2": {testTrack("2", "Two", "Artist B")},
				},
			}

			c := NewCompiler(svc, nil, discardLogger())
			pool, _, err := c.Compile(ctx, CompileOptions{}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(pool) != 1 {
				t.Errorf("expected the surviving playlist's track, got %d candidates", len(pool))
			}
		})

		t.Run("tolerates a failing source", func(t *testing.T) {
			svc := &stubCatalog{
				topErrs: map[string]error{"short_term": fmt.Errorf("%w: rate limited", shared.ErrAPIRequest)},
				top: map[string][]models.Track{
					"medium_term": {testTrack("1", "Alpha", "Artist A")},
				},
			}

			c := NewCompiler(svc, nil, discardLogger())
			pool, counts, err := c.Compile(ctx, CompileOptions{}, nil)
			if err != nil {
				t.Fatalf("one failed source should only thin the pool, got %v", err)
			}
			if len(pool) != 1 {
				t.Errorf("expected 1 candidate, got %d", len(pool))
			}
			if counts["top_tracks_short"] != 0 {
				t.Errorf("failed source should count 0, got %d", counts["top_tracks_short"])
			}
		})

		t.Run("fails when every source fails", func(t *testing.T) {
			boom := fmt.Errorf("%w: token rejected", shared.ErrTokenExpired)
			svc := &stubCatalog{
				topErrs:   map[string]error{"short_term": boom, "medium_term": boom, "long_term": boom},
				savedErr:  boom,
				searchErr: boom,
			}

			c := NewCompiler(svc, nil, discardLogger())
			_, _, err := c.Compile(ctx, CompileOptions{}, nil)
			if err == nil {
				t.Fatal("expected an error when no source produced tracks")
			}
			if !errors.Is(err, shared.ErrTokenExpired) {
				t.Errorf("expected the source error in the chain, got %v", err)
			}
		})

		t.Run("propagates a feature fetch failure", func(t *testing.T) {
			svc := &stubCatalog{
				top:         map[string][]models.Track{"medium_term": {testTrack("1", "Alpha", "Artist A")}},
				featuresErr: fmt.Errorf("%w: upstream down", shared.ErrServiceUnavailable),
			}

			c := NewCompiler(svc, nil, discardLogger())
			_, _, err := c.Compile(ctx, CompileOptions{}, nil)
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected the feature error in the chain, got %v", err)
			}
		})

		t.Run("drops tracks the provider cannot describe", func(t *testing.T) {
			svc := &stubCatalog{
				top: map[string][]models.Track{
					"medium_term": {testTrack("1", "Alpha", "Artist A"), testTrack("2", "Beta", "Artist B")},
				},
				features: map[string]models.Features{"1": {Energy: 0.7}},
			}

			c := NewCompiler(svc, nil, discardLogger())
			pool, _, err := c.Compile(ctx, CompileOptions{}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(pool) != 1 || pool[0].ID != "1" {
				t.Errorf("expected only the featured track, got %+v", pool)
			}
		})

		t.Run("writes the pool through the cache", func(t *testing.T) {
			svc := &stubCatalog{
				top: map[string][]models.Track{"medium_term": {testTrack("1", "Alpha", "Artist A")}},
			}
			cache := &stubCache{}

			c := NewCompiler(svc, cache, discardLogger())
			if _, _, err := c.Compile(ctx, CompileOptions{}, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(cache.saved) != 1 || len(cache.saved[0]) != 1 {
				t.Errorf("expected one cached pool of one candidate, got %v", cache.saved)
			}
		})

		t.Run("a cache write failure only warns", func(t *testing.T) {
			svc := &stubCatalog{
				top: map[string][]models.Track{"medium_term": {testTrack("1", "Alpha", "Artist A")}},
			}
			cache := &stubCache{saveErr: errors.New("disk full")}

			c := NewCompiler(svc, cache, discardLogger())
			pool, _, err := c.Compile(ctx, CompileOptions{}, nil)
			if err != nil {
				t.Fatalf("cache failures must not fail the compile, got %v", err)
			}
			if len(pool) != 1 {
				t.Errorf("expected the pool despite the cache failure, got %d candidates", len(pool))
			}
		})
	})

	t.Run("guest mode", func(t *testing.T) {
		t.Run("serves cached candidates when available", func(t *testing.T) {
			cache := &stubCache{cached: []models.Candidate{
				{ID: "c1", Name: "Cached", Artist: "Artist A", Features: models.Features{Energy: 0.4}},
			}}

			var source string
			c := NewCompiler(nil, cache, discardLogger())
			pool, counts, err := c.Compile(ctx, CompileOptions{}, func(s string, n int) { source = s })
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(pool) != 1 || pool[0].ID != "c1" {
				t.Errorf("expected the cached candidate, got %+v", pool)
			}
			if counts["cache"] != 1 || source != "cache" {
				t.Errorf("expected the cache source to report, got counts=%v source=%q", counts, source)
			}
		})

		t.Run("falls back to the sample pool when the cache is empty", func(t *testing.T) {
			c := NewCompiler(nil, &stubCache{}, discardLogger())
			pool, counts, err := c.Compile(ctx, CompileOptions{}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(pool) != samplePoolSize {
				t.Errorf("expected %d sample candidates, got %d", samplePoolSize, len(pool))
			}
			if counts["sample"] != samplePoolSize {
				t.Errorf("expected the sample source to report %d, got %v", samplePoolSize, counts)
			}
		})

		t.Run("works without a cache", func(t *testing.T) {
			c := NewCompiler(nil, nil, discardLogger())
			pool, _, err := c.Compile(ctx, CompileOptions{}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(pool) != samplePoolSize {
				t.Errorf("expected the sample pool, got %d candidates", len(pool))
			}
		})

		t.Run("a cache read failure falls back to the sample pool", func(t *testing.T) {
			c := NewCompiler(nil, &stubCache{loadErr: errors.New("db closed")}, discardLogger())
			pool, _, err := c.Compile(ctx, CompileOptions{}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(pool) != samplePoolSize {
				t.Errorf("expected the sample pool, got %d candidates", len(pool))
			}
		})

		t.Run("sample pool is deterministic", func(t *testing.T) {
			first, second := samplePool(), samplePool()
			for i := range first {
				if first[i] != second[i] {
					t.Fatalf("sample pool diverged at %d: %+v vs %+v", i, first[i], second[i])
				}
			}
		})

		t.Run("sample features stay in domain", func(t *testing.T) {
			for _, cand := range samplePool() {
				f := cand.Features
				for _, v := range []float64{f.Acousticness, f.Danceability, f.Energy, f.Instrumentalness, f.Liveness, f.Valence} {
					if v < 0 || v > 1 {
						t.Fatalf("candidate %s has an out-of-range unit feature: %+v", cand.ID, f)
					}
				}
				if f.Speechiness < 0 || f.Speechiness > 0.5 {
					t.Errorf("candidate %s speechiness out of range: %v", cand.ID, f.Speechiness)
				}
				if f.Loudness < -30 || f.Loudness > -5 {
					t.Errorf("candidate %s loudness out of range: %v", cand.ID, f.Loudness)
				}
				if f.Tempo < 60 || f.Tempo > 180 {
					t.Errorf("candidate %s tempo out of range: %v", cand.ID, f.Tempo)
				}
			}
		})
	})
}
