package common

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "info", "json").Info("hello", "id", 7)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected json record, got %q", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, "warn", "text").Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
}

func TestLoggerMixinFallback(t *testing.T) {
	var m LoggerMixin
	if m.GetLogger() == nil {
		t.Fatal("expected default logger")
	}

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m.SetLogger(custom)
	m.SetLogger(nil)
	if m.GetLogger() != custom {
		t.Error("nil logger should not replace the current one")
	}
}
