// Package logging configures the host's JSONL log output.
//
// Stdout carries the native messaging protocol, so logs always go to a
// rotated file and never to stdout.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/timvw/pigeon/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Runtime bundles the configured logger and its output sink lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a JSONL logger writing to cfg.LogFile, or host.log under the
// state dir when unset.
func New(cfg *config.Config) (Runtime, error) {
	path, err := Path(cfg)
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}

	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}
	h := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
	return Runtime{Logger: slog.New(h), Path: path, closer: sink}, nil
}

// Path resolves where New writes, without touching the filesystem.
func Path(cfg *config.Config) (string, error) {
	if cfg.LogFile != "" {
		return cfg.LogFile, nil
	}
	dir, err := config.StateDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(dir, "host.log"), nil
}

// Discard returns a runtime that drops everything, for commands that run
// before or without a configured log file.
func Discard() Runtime {
	return Runtime{Logger: slog.New(slog.DiscardHandler)}
}

// ParseLevel maps a config level name onto slog. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch name {
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
