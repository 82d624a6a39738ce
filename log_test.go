package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogInitDebugWritesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	closeLog := logInit(true)
	slog.Debug("Sync step", "account", "HN")
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, debugLogName))
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, "Running in DEBUG mode")
	require.Contains(t, out, "level=DEBUG")
	require.Contains(t, out, "account=HN")
}

func TestNewLoggerQuietByDefault(t *testing.T) {
	logger, file, err := newLogger(false)
	require.NoError(t, err)
	require.Nil(t, file)
	require.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
	require.True(t, logger.Enabled(context.Background(), slog.LevelError))
}
