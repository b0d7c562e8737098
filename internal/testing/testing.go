// package testing holds test doubles and filesystem assertions shared by the
// package test suites.
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
)

// MockService is a no-op [services.Service] double: every call succeeds with
// an empty result.
type MockService struct{}

func (m *MockService) Authenticate(ctx context.Context, cred *models.Credential) error {
	return nil
}

func (m *MockService) Profile(ctx context.Context) (*models.Profile, error) {
	return &models.Profile{ID: "mock-user"}, nil
}

func (m *MockService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	return []models.Track{}, nil
}

func (m *MockService) TopTracks(ctx context.Context, timeRange string, limit int) ([]models.Track, error) {
	return []models.Track{}, nil
}

func (m *MockService) SavedTracks(ctx context.Context, limit, offset int) ([]models.Track, error) {
	return []models.Track{}, nil
}

func (m *MockService) SearchPlaylists(ctx context.Context, query string, limit int) ([]models.Playlist, error) {
	return []models.Playlist{}, nil
}

func (m *MockService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) ([]models.Track, error) {
	return []models.Track{}, nil
}

func (m *MockService) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.Features, error) {
	return map[string]models.Features{}, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	return &models.Playlist{ID: "mock-playlist", Name: name}, nil
}

func (m *MockService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	return nil
}

func (m *MockService) Name() string { return "mock" }

// FWriter fails every Write.
type FWriter struct{}

func (f *FWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

// LimitedWriter passes writes through to the target until its budget is
// spent, then fails. It pins down error handling on the Nth write.
type LimitedWriter struct {
	remaining int
	target    io.Writer
}

// NewLimitedWriter builds a writer that allows maxWrites-written more writes.
func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{remaining: maxWrites - written, target: target}
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, errors.New("write limit exceeded")
	}
	l.remaining--
	return l.target.Write(p)
}

// MockRoundTripper answers every request with a scripted response or error.
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser is a response body whose reads fail.
type FCloser struct{}

func (f *FCloser) Read([]byte) (int, error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error { return nil }

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file %s to exist: %v", path, err)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected directory %s to exist: %v", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content)
}
