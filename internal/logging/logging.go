// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the per-run zap logger. Each run writes JSON lines
// to its own timestamped file; warnings and errors are echoed to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

const defaultDir = "logs"

// FileName returns the log file name for a run started at t,
// e.g. fda_load_20261015_093000.log.
func FileName(t time.Time) string {
	return fmt.Sprintf("fda_load_%s.log", t.Format("20060102_150405"))
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(s)
}

// RunLogger is a zap logger bound to one run's log file.
type RunLogger struct {
	*zap.Logger

	// Path is the log file written by this logger.
	Path string

	file *os.File
}

// New creates cfg.Dir if needed and opens a fresh log file named for start.
// console receives entries at warn level and above; pass nil to disable.
func New(cfg types.LogConfig, start time.Time, console io.Writer) (*RunLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName(start))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level),
	}
	if console != nil {
		consoleLevel := level
		if consoleLevel < zapcore.WarnLevel {
			consoleLevel = zapcore.WarnLevel
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(console),
			consoleLevel,
		))
	}

	return &RunLogger{
		Logger: zap.New(zapcore.NewTee(cores...)),
		Path:   path,
		file:   f,
	}, nil
}

// Close flushes buffered entries and closes the log file.
func (l *RunLogger) Close() error {
	l.Logger.Sync()
	return l.file.Close()
}
