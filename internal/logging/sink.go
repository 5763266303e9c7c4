// Package logging provides the append-only timestamped log sinks and the
// slog handler that renders session events onto one.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// timeLayout renders ISO-8601 UTC to the second, e.g. 2024-06-01T12:30:05Z.
const timeLayout = "2006-01-02T15:04:05Z"

// Sink is an append-only, timestamped text stream bound to a writer. Each
// line is prefixed with a bracketed ISO-8601 UTC timestamp. A Sink has a
// single logical writer at a time; the mutex only guards against torn lines.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	now    func() time.Time
}

// OpenSink creates or appends to the log file at path.
func OpenSink(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log sink: %w", err)
	}
	return &Sink{w: f, closer: f, now: time.Now}, nil
}

// NewSink wraps an arbitrary writer, e.g. a buffer in tests or a
// MultiWriter mirroring the session log to the terminal.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w, now: time.Now}
}

// WriteLine appends one timestamped line. Write errors are swallowed:
// logging must never fail the batch.
func (s *Sink) WriteLine(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UTC().Format(timeLayout)
	fmt.Fprintf(s.w, "[%s] %s\n", ts, msg)
}

// Close releases the underlying file, if any. Safe on every exit path.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
