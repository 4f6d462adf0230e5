// Package logging builds slog subsystem loggers over stderr and an optional
// rotating log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig configures a LogBackend.
type LogConfig struct {
	// LogFile enables file logging when non-empty.
	LogFile string
	// DebugLevel is the level every logger starts at ("info" when empty).
	DebugLevel string
	// MaxLogFiles bounds rotated files kept on disk.
	MaxLogFiles int
}

// LogBackend hands out per-subsystem loggers sharing one sink.
type LogBackend struct {
	backend *slog.Backend
	rotator *rotator.Rotator
	level   slog.Level

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

// logWriter tees log output into the rotator.
type logWriter struct {
	r *rotator.Rotator
}

func (w *logWriter) Write(p []byte) (int, error) {
	os.Stderr.Write(p)
	return w.r.Write(p)
}

// NewLogBackend creates the backend described by cfg.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	level := slog.LevelInfo
	if cfg.DebugLevel != "" {
		var ok bool
		level, ok = slog.LevelFromString(cfg.DebugLevel)
		if !ok {
			return nil, fmt.Errorf("unknown debug level %q", cfg.DebugLevel)
		}
	}

	lb := &LogBackend{
		level:   level,
		loggers: make(map[string]slog.Logger),
	}

	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		maxRolls := cfg.MaxLogFiles
		if maxRolls <= 0 {
			maxRolls = 3
		}
		r, err := rotator.New(cfg.LogFile, 1024, false, maxRolls)
		if err != nil {
			return nil, fmt.Errorf("opening log rotator: %w", err)
		}
		lb.rotator = r
		w = &logWriter{r: r}
	}
	lb.backend = slog.NewBackend(w)
	return lb, nil
}

// Logger returns the named subsystem logger, creating it on first use.
func (lb *LogBackend) Logger(subsys string) slog.Logger {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if l, ok := lb.loggers[subsys]; ok {
		return l
	}
	l := lb.backend.Logger(subsys)
	l.SetLevel(lb.level)
	lb.loggers[subsys] = l
	return l
}

// Close flushes and closes the rotating log file, if any.
func (lb *LogBackend) Close() error {
	if lb.rotator != nil {
		return lb.rotator.Close()
	}
	return nil
}
