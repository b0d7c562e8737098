package scoring

import (
	"fmt"
	"time"
)

// Stopwatch measures elapsed wall time for strategy and task timing.
// The zero value is not started; NewStopwatch returns one already running.
type Stopwatch struct {
	start time.Time
}

// NewStopwatch returns a running stopwatch.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{start: time.Now()}
}

// Restart resets the stopwatch to now.
func (s *Stopwatch) Restart() {
	s.start = time.Now()
}

// ElapsedMS returns the elapsed time in milliseconds.
func (s *Stopwatch) ElapsedMS() float64 {
	return float64(time.Since(s.start)) / float64(time.Millisecond)
}

// FormatMS renders a millisecond duration the way run events report it,
// e.g. "142ms".
func FormatMS(ms float64) string {
	return fmt.Sprintf("%.0fms", ms)
}
