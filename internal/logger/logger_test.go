package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.Debug("hidden")
	log.Info("stored", slog.String("key", "dreamstream:favorites"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"key":"dreamstream:favorites"`)
}
