package logging_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/fable/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FanOutToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fable.log")
	logger, closer, err := logging.New(slog.LevelInfo, logging.Options{File: path})
	require.NoError(t, err)

	logger.Info("turn", "error", "boom")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"err":"boom"`)
}

func TestNew_NoFile(t *testing.T) {
	logger, closer, err := logging.New(slog.LevelDebug, logging.Options{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}

func TestParseLevel(t *testing.T) {
	level, err := logging.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = logging.ParseLevel("loud")
	assert.Error(t, err)
}
