// package shared defines helpers used across the playlist generation toolchain
package shared

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger builds the application [log.Logger]: timestamps and caller
// reporting on, writing to w, or [os.Stderr] when w is nil.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
	})
}

// WithLogger derives a child [log.Logger] carrying the given key-value pairs
// on every entry, used to tag a component's log lines.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel adjusts the minimum [log.Level] the logger emits.
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID returns a fresh v4 uuid string, used for run ids and repository
// row ids.
func GenerateID() string {
	return uuid.New().String()
}

// NormalizeTrackKey builds a deduplication key from a track title and artist:
// both parts lowercased with whitespace collapsed, joined by a pipe.
//
// Candidate pools merge tracks from several sources (top tracks, saved
// tracks, playlist search) where the same song appears under different
// catalog ids; the key collapses those into one entry.
func NormalizeTrackKey(title, artist string) string {
	return normalizeKeyPart(title) + "|" + normalizeKeyPart(artist)
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
