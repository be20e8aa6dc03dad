package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentMain      Component = "main"
	ComponentLoop      Component = "loop"
	ComponentLink      Component = "link"
	ComponentSurface   Component = "surface"
	ComponentMonitor   Component = "monitor"
	ComponentBridge    Component = "bridge"
	ComponentStatsview Component = "statsview"
)

// Format specifies the handler used for output.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var (
	level = new(slog.LevelVar)

	mu   sync.RWMutex
	base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
)

// SetLevel sets the minimum level for every component logger.
func SetLevel(l slog.Level) { level.Set(l) }

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug", "trace":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Setup replaces the shared handler. Loggers obtained earlier from For keep
// the handler they were created with.
func Setup(w io.Writer, format Format) {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch format {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	mu.Lock()
	base = slog.New(h)
	mu.Unlock()
}

// For returns a logger tagged with the component.
func For(c Component) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With("component", string(c))
}

// Discard is a logger that drops everything; used by tests and by callers
// that pass a nil logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
