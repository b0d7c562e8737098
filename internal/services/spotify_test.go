package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
)

// newTestSpotify returns an authenticated service pointed at the test server.
func newTestSpotify(t *testing.T, srvURL string) *SpotifyService {
	t.Helper()

	svc := NewSpotifyService()
	svc.baseURL = srvURL

	cred := &models.Credential{AccessToken: "test-token", TokenType: "Bearer"}
	if err := svc.Authenticate(context.Background(), cred); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		svc := NewSpotifyService()

		if svc.baseURL != spotifyBaseURL {
			t.Errorf("expected baseURL %s, got %s", spotifyBaseURL, svc.baseURL)
		}
		if svc.limiter == nil {
			t.Error("expected rate limiter to be configured")
		}
		if svc.Name() != "Spotify" {
			t.Errorf("expected service name 'Spotify', got %s", svc.Name())
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("With Valid Credential", func(t *testing.T) {
			srv := newRecordingServer(t, jsonResponse(`{"id":"user-1"}`))

			svc := NewSpotifyService()
			svc.baseURL = srv.URL

			cred := &models.Credential{AccessToken: "abc123", TokenType: "Bearer"}
			if err := svc.Authenticate(context.Background(), cred); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if _, err := svc.Profile(context.Background()); err != nil {
				t.Fatalf("request after Authenticate failed: %v", err)
			}
			if got := srv.last().Header.Get("Authorization"); got != "Bearer abc123" {
				t.Errorf("expected bearer header, got %q", got)
			}
		})

		t.Run("Nil Credential", func(t *testing.T) {
			svc := NewSpotifyService()

			err := svc.Authenticate(context.Background(), nil)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Empty Access Token", func(t *testing.T) {
			svc := NewSpotifyService()

			err := svc.Authenticate(context.Background(), &models.Credential{})
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Requests Before Authenticate Fail", func(t *testing.T) {
			svc := NewSpotifyService()

			_, err := svc.Profile(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Error Mapping", func(t *testing.T) {
		statusCases := []struct {
			name   string
			status int
			want   error
		}{
			{"Unauthorized Maps To Token Expired", http.StatusUnauthorized, shared.ErrTokenExpired},
			{"Rate Limited Maps To API Request", http.StatusTooManyRequests, shared.ErrAPIRequest},
			{"Server Error Maps To Service Unavailable", http.StatusBadGateway, shared.ErrServiceUnavailable},
			{"Other Client Error Maps To API Request", http.StatusForbidden, shared.ErrAPIRequest},
		}

		for _, tc := range statusCases {
			t.Run(tc.name, func(t *testing.T) {
				srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
					w.Write([]byte(`{"error":{"message":"nope"}}`))
				})

				svc := newTestSpotify(t, srv.URL)
				_, err := svc.Profile(context.Background())

				if !errors.Is(err, tc.want) {
					t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
				}
			})
		}
	})

	t.Run("Profile", func(t *testing.T) {
		srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("expected path /me, got %s", r.URL.Path)
			}
			jsonResponse(`{"id":"user-42","display_name":"Test Listener","email":"listener@example.com","product":"premium"}`)(w, r)
		})

		svc := newTestSpotify(t, srv.URL)
		profile, err := svc.Profile(context.Background())

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.ID != "user-42" {
			t.Errorf("expected id user-42, got %s", profile.ID)
		}
		if profile.DisplayName != "Test Listener" {
			t.Errorf("expected display name, got %s", profile.DisplayName)
		}
		if profile.Email != "listener@example.com" {
			t.Errorf("expected email, got %s", profile.Email)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		t.Run("Maps Results And Joins Artists", func(t *testing.T) {
			srv := newRecordingServer(t, jsonResponse(`{
				"tracks": {"items": [
					{"id": "t1", "name": "Collab", "duration_ms": 215000,
					 "artists": [{"name": "First"}, {"name": "Second"}],
					 "album": {"name": "Joint Album"}},
					{"id": "", "name": "ghost"},
					{"id": "t2", "name": "Solo", "duration_ms": 180500,
					 "artists": [{"name": "Only"}],
					 "album": {"name": "Alone"}}
				]}
			}`))

			svc := newTestSpotify(t, srv.URL)
			tracks, err := svc.SearchTracks(context.Background(), "lo-fi beats", 10)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks after skipping the null item, got %d", len(tracks))
			}
			if tracks[0].Artist != "First, Second" {
				t.Errorf("expected joined artists, got %q", tracks[0].Artist)
			}
			if tracks[0].Duration != 215 {
				t.Errorf("expected duration in seconds, got %d", tracks[0].Duration)
			}

			query := srv.last().URL.Query()
			if query.Get("q") != "lo-fi beats" {
				t.Errorf("expected escaped query to round-trip, got %q", query.Get("q"))
			}
			if query.Get("type") != "track" {
				t.Errorf("expected type=track, got %q", query.Get("type"))
			}
			if query.Get("limit") != "10" {
				t.Errorf("expected limit=10, got %q", query.Get("limit"))
			}
		})

		t.Run("Empty Query", func(t *testing.T) {
			svc := newTestSpotify(t, newRecordingServer(t, jsonResponse(`{}`)).URL)

			_, err := svc.SearchTracks(context.Background(), "   ", 10)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("Limit Is Clamped", func(t *testing.T) {
			srv := newRecordingServer(t, jsonResponse(`{"tracks":{"items":[]}}`))
			svc := newTestSpotify(t, srv.URL)

			if _, err := svc.SearchTracks(context.Background(), "q", 500); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := srv.last().URL.Query().Get("limit"); got != "50" {
				t.Errorf("expected limit clamped to 50, got %q", got)
			}

			if _, err := svc.SearchTracks(context.Background(), "q", 0); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := srv.last().URL.Query().Get("limit"); got != "20" {
				t.Errorf("expected default limit 20, got %q", got)
			}
		})
	})

	t.Run("TopTracks", func(t *testing.T) {
		t.Run("Defaults To Medium Term", func(t *testing.T) {
			srv := newRecordingServer(t, jsonResponse(`{"items":[{"id":"top1","name":"Hit","artists":[{"name":"A"}],"duration_ms":1000}]}`))
			svc := newTestSpotify(t, srv.URL)

			tracks, err := svc.TopTracks(context.Background(), "", 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].ID != "top1" {
				t.Fatalf("expected the mapped top track, got %+v", tracks)
			}

			query := srv.last().URL.Query()
			if query.Get("time_range") != "medium_term" {
				t.Errorf("expected time_range medium_term, got %q", query.Get("time_range"))
			}
		})

		t.Run("Rejects Unknown Time Range", func(t *testing.T) {
			svc := newTestSpotify(t, newRecordingServer(t, jsonResponse(`{}`)).URL)

			_, err := svc.TopTracks(context.Background(), "all_time", 5)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("SavedTracks", func(t *testing.T) {
		srv := newRecordingServer(t, jsonResponse(`{
			"items": [
				{"added_at": "2024-01-01T00:00:00Z", "track": {"id": "lib1", "name": "Saved", "artists": [{"name": "Keeper"}], "duration_ms": 90000}},
				{"added_at": "2024-01-02T00:00:00Z", "track": {"id": "", "name": "removed"}}
			]
		}`))

		svc := newTestSpotify(t, srv.URL)
		tracks, err := svc.SavedTracks(context.Background(), 25, 50)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].ID != "lib1" {
			t.Fatalf("expected one library track, got %+v", tracks)
		}

		query := srv.last().URL.Query()
		if query.Get("limit") != "25" || query.Get("offset") != "50" {
			t.Errorf("expected limit=25 offset=50, got limit=%q offset=%q", query.Get("limit"), query.Get("offset"))
		}
	})

	t.Run("SearchPlaylists", func(t *testing.T) {
		srv := newRecordingServer(t, jsonResponse(`{
			"playlists": {"items": [
				{"id": "p1", "name": "Focus Mix", "description": "deep work",
				 "public": true, "tracks": {"total": 42},
				 "external_urls": {"spotify": "https://open.spotify.com/playlist/p1"}},
				{"id": "", "name": null}
			]}
		}`))

		svc := newTestSpotify(t, srv.URL)
		playlists, err := svc.SearchPlaylists(context.Background(), "focus", 5)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 1 {
			t.Fatalf("expected 1 playlist after skipping the null item, got %d", len(playlists))
		}
		if playlists[0].TrackCount != 42 {
			t.Errorf("expected track count 42, got %d", playlists[0].TrackCount)
		}
		if playlists[0].URL != "https://open.spotify.com/playlist/p1" {
			t.Errorf("expected external url mapped, got %q", playlists[0].URL)
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		t.Run("Unwraps Playlist Items", func(t *testing.T) {
			srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/playlists/p9/tracks" {
					t.Errorf("expected playlist tracks path, got %s", r.URL.Path)
				}
				jsonResponse(`{"items":[{"track":{"id":"pt1","name":"In Playlist","artists":[{"name":"Curator"}],"duration_ms":60000}}]}`)(w, r)
			})

			svc := newTestSpotify(t, srv.URL)
			tracks, err := svc.PlaylistTracks(context.Background(), "p9", 10, 0)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].ID != "pt1" {
				t.Fatalf("expected the playlist track, got %+v", tracks)
			}
		})

		t.Run("Missing Playlist ID", func(t *testing.T) {
			svc := newTestSpotify(t, newRecordingServer(t, jsonResponse(`{}`)).URL)

			_, err := svc.PlaylistTracks(context.Background(), "", 10, 0)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("AudioFeatures", func(t *testing.T) {
		t.Run("Batches Requests Of 100", func(t *testing.T) {
			srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
				ids := strings.Split(r.URL.Query().Get("ids"), ",")

				features := make([]map[string]any, 0, len(ids))
				for _, id := range ids {
					features = append(features, map[string]any{"id": id, "energy": 0.5, "tempo": 120.0})
				}
				json.NewEncoder(w).Encode(map[string]any{"audio_features": features})
			})

			ids := make([]string, 0, 150)
			for i := 0; i < 150; i++ {
				ids = append(ids, fmt.Sprintf("track-%03d", i))
			}

			svc := newTestSpotify(t, srv.URL)
			features, err := svc.AudioFeatures(context.Background(), ids)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(features) != len(ids) {
				t.Errorf("expected %d feature vectors, got %d", len(ids), len(features))
			}
			if srv.count() != 2 {
				t.Errorf("expected 2 batched requests for %d ids, got %d", len(ids), srv.count())
			}

			first := srv.request(0).URL.Query().Get("ids")
			if got := len(strings.Split(first, ",")); got != maxFeatureBatch {
				t.Errorf("expected first batch of %d ids, got %d", maxFeatureBatch, got)
			}
		})

		t.Run("Skips Null Entries", func(t *testing.T) {
			srv := newRecordingServer(t, jsonResponse(`{"audio_features":[{"id":"known","energy":0.9,"tempo":140},null]}`))

			svc := newTestSpotify(t, srv.URL)
			features, err := svc.AudioFeatures(context.Background(), []string{"known", "unknown"})

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(features) != 1 {
				t.Fatalf("expected only the resolvable id, got %d entries", len(features))
			}
			if got := features["known"]; got.Energy != 0.9 || got.Tempo != 140 {
				t.Errorf("expected mapped features, got %+v", got)
			}
		})

		t.Run("No IDs Makes No Requests", func(t *testing.T) {
			srv := newRecordingServer(t, jsonResponse(`{}`))

			svc := newTestSpotify(t, srv.URL)
			features, err := svc.AudioFeatures(context.Background(), nil)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(features) != 0 {
				t.Errorf("expected empty map, got %d entries", len(features))
			}
			if srv.count() != 0 {
				t.Errorf("expected no requests, got %d", srv.count())
			}
		})
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		t.Run("Creates Under The Authenticated User", func(t *testing.T) {
			srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/me":
					jsonResponse(`{"id":"owner-1"}`)(w, r)
				case "/users/owner-1/playlists":
					if r.Method != http.MethodPost {
						t.Errorf("expected POST, got %s", r.Method)
					}
					body, _ := io.ReadAll(r.Body)
					var payload map[string]any
					if err := json.Unmarshal(body, &payload); err != nil {
						t.Errorf("failed to unmarshal create body: %v", err)
					}
					if payload["name"] != "Morning Energy" {
						t.Errorf("expected playlist name in body, got %v", payload["name"])
					}
					if payload["public"] != false {
						t.Errorf("expected public=false, got %v", payload["public"])
					}
					w.WriteHeader(http.StatusCreated)
					w.Write([]byte(`{"id":"new-pl","name":"Morning Energy","description":"generated","public":false,"external_urls":{"spotify":"https://open.spotify.com/playlist/new-pl"}}`))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
					w.WriteHeader(http.StatusNotFound)
				}
			})

			svc := newTestSpotify(t, srv.URL)
			playlist, err := svc.CreatePlaylist(context.Background(), "Morning Energy", "generated", false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if playlist.ID != "new-pl" {
				t.Errorf("expected created playlist id, got %s", playlist.ID)
			}
			if playlist.URL == "" {
				t.Error("expected external url on the created playlist")
			}
		})

		t.Run("Caches The User ID", func(t *testing.T) {
			var profileCalls int
			var mu sync.Mutex

			srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/me" {
					mu.Lock()
					profileCalls++
					mu.Unlock()
					jsonResponse(`{"id":"owner-1"}`)(w, r)
					return
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"id":"pl"}`))
			})

			svc := newTestSpotify(t, srv.URL)
			for i := 0; i < 2; i++ {
				if _, err := svc.CreatePlaylist(context.Background(), "Playlist", "", true); err != nil {
					t.Fatalf("create %d failed: %v", i, err)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if profileCalls != 1 {
				t.Errorf("expected a single profile lookup, got %d", profileCalls)
			}
		})

		t.Run("Missing Name", func(t *testing.T) {
			svc := newTestSpotify(t, newRecordingServer(t, jsonResponse(`{}`)).URL)

			_, err := svc.CreatePlaylist(context.Background(), " ", "", true)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("AddTracks", func(t *testing.T) {
		t.Run("Chunks URIs To The API Limit", func(t *testing.T) {
			var batches [][]string
			var mu sync.Mutex

			srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				var payload struct {
					URIs []string `json:"uris"`
				}
				if err := json.Unmarshal(body, &payload); err != nil {
					t.Errorf("failed to unmarshal uris: %v", err)
				}
				mu.Lock()
				batches = append(batches, payload.URIs)
				mu.Unlock()
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"snapshot_id":"snap"}`))
			})

			ids := make([]string, 0, 130)
			for i := 0; i < 130; i++ {
				ids = append(ids, "id")
			}

			svc := newTestSpotify(t, srv.URL)
			if err := svc.AddTracks(context.Background(), "pl-1", ids); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(batches) != 2 {
				t.Fatalf("expected 2 batches for 130 ids, got %d", len(batches))
			}
			if len(batches[0]) != maxTrackBatch || len(batches[1]) != 30 {
				t.Errorf("expected batch sizes 100 and 30, got %d and %d", len(batches[0]), len(batches[1]))
			}
			if batches[0][0] != "spotify:track:id" {
				t.Errorf("expected track uri prefix, got %q", batches[0][0])
			}
		})

		t.Run("Missing Playlist ID", func(t *testing.T) {
			svc := newTestSpotify(t, newRecordingServer(t, jsonResponse(`{}`)).URL)

			err := svc.AddTracks(context.Background(), "", []string{"a"})
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})
}

// recordingServer wraps httptest.Server and keeps every request it saw.
type recordingServer struct {
	*httptest.Server

	mu   sync.Mutex
	reqs []*http.Request
}

func newRecordingServer(t *testing.T, handler http.HandlerFunc) *recordingServer {
	t.Helper()

	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clone := r.Clone(r.Context())
		clone.URL = &url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery}
		rs.mu.Lock()
		rs.reqs = append(rs.reqs, clone)
		rs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(rs.Server.Close)
	return rs
}

func (rs *recordingServer) count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.reqs)
}

func (rs *recordingServer) request(i int) *http.Request {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.reqs[i]
}

func (rs *recordingServer) last() *http.Request {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.reqs) == 0 {
		return &http.Request{URL: &url.URL{}, Header: http.Header{}}
	}
	return rs.reqs[len(rs.reqs)-1]
}

// jsonResponse returns a handler that writes the given body as JSON.
func jsonResponse(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}
