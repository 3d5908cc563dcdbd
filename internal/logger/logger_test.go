package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyHandlerWritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, slog.LevelInfo))

	log.With("component", "web").WithGroup("req").Info("converted", "runes", 4)

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "converted")
	assert.Contains(t, out, "component")
	assert.Contains(t, out, "req.runes")
}

func TestPrettyHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, slog.LevelWarn))

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Error("shown")
	assert.Contains(t, buf.String(), "ERR")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}
