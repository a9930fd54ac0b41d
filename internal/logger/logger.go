package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Options controls the default slog logger
type Options struct {
	Level  string
	Format string
	// Dir, when set, receives a per-run file named scraper_YYYYMMDD_HHMMSS.log
	Dir string
	// Output defaults to stderr so progress bars and tables on stdout stay clean
	Output io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the default logger and returns a closer for the run log file
func Setup(opts Options) (io.Closer, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		f, err := openRunFile(opts.Dir, time.Now())
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(out, f)
		closer = f
	}

	slog.SetDefault(slog.New(newHandler(out, opts.Level, opts.Format)))
	return closer, nil
}

// WithComponent returns the default logger tagged with a component name
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// RunFileName returns the log file name for a run started at t
func RunFileName(t time.Time) string {
	return fmt.Sprintf("scraper_%s.log", t.Format("20060102_150405"))
}

func openRunFile(dir string, started time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, RunFileName(started))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return f, nil
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
