package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOptions_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOptions(Options{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf})

	logger.Debug("hidden")
	logger.Info("Application submitted", "guide_id", "micro-credit", "error", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Application submitted", entry["msg"])
	assert.Equal(t, "micro-credit", entry["guide_id"])
	assert.Equal(t, "boom", entry["err"])
	assert.NotContains(t, entry, "error")
}

func TestNewWithOptions_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOptions(Options{Level: slog.LevelDebug, Output: &buf})

	logger.Debug("Step advanced", "step", 2)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "step=2")
}

func TestNewNop(t *testing.T) {
	assert.False(t, NewNop().Enabled(context.Background(), slog.LevelError))
}
