// Package logging builds the zap loggers used across coursecheck.
//
// Every run gets a run ID. Structured JSON entries for the run are appended to
// ~/.coursecheck/logs/<run-id>-coursecheck.log while a human-readable copy is
// written to the console.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures NewLogger.
type Options struct {
	// Level is the minimum level written to the console. The log file always
	// receives debug entries.
	Level zapcore.Level

	// Console receives the human-readable stream. Defaults to os.Stderr.
	Console io.Writer
}

// Logger is a zap logger bound to this run's log file.
type Logger struct {
	*zap.Logger

	runID     string
	file      *os.File
	logPath   string
	closeOnce sync.Once
}

var (
	runID     string
	runIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	initOnce sync.Once
	initErr  error
)

func getRunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir != "" {
			initErr = os.MkdirAll(logDir, 0o750)
			return
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir = filepath.Join(homeDir, ".coursecheck", "logs")
		if err := os.MkdirAll(logDir, 0o750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// NewLogger creates the run logger.
//
// If the log file cannot be opened, it returns a console-only logger together
// with the error so callers can report the degraded mode.
func NewLogger(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderConfig()),
		zapcore.AddSync(console),
		opts.Level,
	)

	id := getRunID()
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(consoleCore, id), err
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("%s-coursecheck.log", id))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return newFallbackLogger(consoleCore, id), fmt.Errorf("failed to open log file: %w", err)
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(file),
		zapcore.DebugLevel,
	)

	return &Logger{
		Logger:  zap.New(zapcore.NewTee(consoleCore, fileCore)).With(zap.String("run", id)),
		runID:   id,
		file:    file,
		logPath: logPath,
	}, nil
}

func newFallbackLogger(core zapcore.Core, id string) *Logger {
	l := zap.New(core).With(zap.String("run", id))
	l.Warn("file logging unavailable, logging to console only")
	return &Logger{Logger: l, runID: id}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// Component returns a child logger named after a subsystem.
func (l *Logger) Component(name string) *zap.Logger {
	return l.Named(name)
}

// RunID returns the ID shared by every logger of this run.
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the path to the log file, or "" in console-only mode.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close flushes and closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.Sync()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetRunID returns the current global run ID.
func GetRunID() string {
	return getRunID()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
