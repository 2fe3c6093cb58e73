package observability

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// errorFileSink appends error-level events to a log file. The file is not
// opened until the first qualifying event, so runs without errors leave no
// trace on disk.
type errorFileSink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	failed error
}

func newErrorFileSink(path string) *errorFileSink {
	return &errorFileSink{path: path}
}

// Write satisfies io.Writer. Events arrive through WriteLevel; anything
// without a level is not an error and is dropped.
func (s *errorFileSink) Write(p []byte) (int, error) {
	return len(p), nil
}

// WriteLevel appends the raw event to the error log when the level is
// error or above.
func (s *errorFileSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel || level >= zerolog.NoLevel {
		return len(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed != nil {
		return len(p), s.failed
	}
	if s.file == nil {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			s.failed = err
			return len(p), err
		}
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			s.failed = err
			return len(p), err
		}
		s.file = f
	}
	if _, err := s.file.Write(p); err != nil {
		return len(p), err
	}
	return len(p), nil
}

// Close closes the underlying file if it was ever opened.
func (s *errorFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
