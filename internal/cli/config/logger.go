package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	sharedcfg "github.com/leapstack-labs/relsplit/internal/config"
)

// NewLogger builds the invocation logger from the logging configuration.
// verbose lowers the level to debug. When logging.file is set the log goes
// there instead of stderr; the returned close function releases the file.
func NewLogger(lc LoggingConfig, stderr io.Writer, verbose bool) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(lc.Level)
	if err != nil {
		return nil, nil, sharedcfg.InvalidKey("logging.level", err, "invalid log level")
	}
	if verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	w := stderr
	closeFn := func() error { return nil }
	if lc.File != "" {
		if err := os.MkdirAll(filepath.Dir(lc.File), 0o750); err != nil {
			return nil, nil, sharedcfg.InvalidKey("logging.file", err, "cannot create log directory")
		}
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path from configuration
		if err != nil {
			return nil, nil, sharedcfg.InvalidKey("logging.file", err, "cannot open log file")
		}
		w = f
		closeFn = f.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	if !lc.ShowTime {
		opts.ReplaceAttr = dropTime
	}

	var h slog.Handler
	if lc.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closeFn, nil
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
