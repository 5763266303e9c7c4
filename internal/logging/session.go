package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Session bundles the session-wide log sink with its slog front end. It is
// owned by the run wiring for the whole process lifetime.
type Session struct {
	Logger *slog.Logger
	Path   string

	sink *Sink
}

// NewSession opens the session log file under logDir and returns a logger
// writing to it. When mirror is non-nil (verbose mode), every line is also
// copied there.
func NewSession(logDir string, mirror io.Writer) (*Session, error) {
	stamp := time.Now().UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("session-%s-%s.log", stamp, uuid.NewString())
	path := filepath.Join(logDir, name)

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	var w io.Writer = f
	if mirror != nil {
		w = io.MultiWriter(f, mirror)
	}
	sink := &Sink{w: w, closer: f, now: time.Now}

	return &Session{
		Logger: slog.New(NewHandler(sink, slog.LevelInfo)),
		Path:   path,
		sink:   sink,
	}, nil
}

// NewTestSession returns a session writing to w, for tests and dry wiring.
func NewTestSession(w io.Writer) *Session {
	sink := NewSink(w)
	return &Session{Logger: slog.New(NewHandler(sink, slog.LevelInfo)), sink: sink}
}

// Close releases the session log file.
func (s *Session) Close() error {
	if s == nil || s.sink == nil {
		return nil
	}
	return s.sink.Close()
}
