package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const debugLogName = "orderdash_debug.log"

// the TUI draws on stdout/stderr, so debug output goes to a file in the OS
// temp folder instead
func debugLogPath() string {
	return filepath.Join(os.TempDir(), debugLogName)
}

// newLogger returns the process logger and the file it writes to, if any.
// Without debug only errors are printed, to stderr.
func newLogger(debugMode bool) (*slog.Logger, io.Closer, error) {
	if !debugMode {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})), nil, nil
	}
	logFile, err := os.OpenFile(debugLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})), nil, err
	}
	h := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h).With("version", versionString()), logFile, nil
}

// logInit installs the default logger and returns a func that closes the log file.
func logInit(debugMode bool) func() {
	logger, file, err := newLogger(debugMode)
	slog.SetDefault(logger)
	if err != nil {
		slog.Warn("Cannot open debug log, using stderr", "path", debugLogPath(), "error", err)
	}
	if file == nil {
		return func() {}
	}
	slog.Info("Running in DEBUG mode", "log_file", debugLogPath())
	return func() { file.Close() }
}
