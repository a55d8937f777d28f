package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestFromSettings_EnvOverrides(t *testing.T) {
	t.Setenv("APIDL_LOG_LEVEL", "")
	t.Setenv("APIDL_LOG_FORMAT", "")

	cfg := FromSettings("indexer", "debug", "JSON")
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "indexer", cfg.Component)

	t.Setenv("APIDL_LOG_LEVEL", "error")
	t.Setenv("APIDL_LOG_FORMAT", "text")
	cfg = FromSettings("indexer", "debug", "json")
	assert.Equal(t, slog.LevelError, cfg.Level)
	assert.Equal(t, "text", cfg.Format)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: "test"})

	logger.Debug("hidden")
	logger.Info("indexed", "files", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "indexed", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, float64(3), entry["files"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "text", Output: &buf})

	logger.Info("hidden")
	logger.Warn("slow file", "path", "a.api")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "slow file")
	assert.Contains(t, buf.String(), "path=a.api")
}

func TestNop(t *testing.T) {
	logger := Nop()
	require.NotNil(t, logger)
	logger.Error("discarded")
}
