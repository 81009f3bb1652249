package obs

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// switchWriter lets tests capture log output without rebuilding handlers.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

var (
	loggerOnce sync.Once
	logger     *slog.Logger
	output     = &switchWriter{w: os.Stdout}
)

// Logger returns the shared structured logger. Output is JSON lines.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		logger = slog.New(slog.NewJSONHandler(output, nil))
	})
	return logger
}

// SetOutput redirects log output. Intended for tests.
func SetOutput(w io.Writer) {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.w = w
}
